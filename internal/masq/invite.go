package masq

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"privatetasks/internal/config"
)

const linkSegment = "link/"

// Invite is the payload carried by a pairing link. It tells the pairing
// application who is asking, where to answer, and which key signs the answer.
type Invite struct {
	Name        string               `json:"name"`
	Description string               `json:"description"`
	ImageURL    string               `json:"imageURL,omitempty"`
	Channel     string               `json:"channel"`
	Key         string               `json:"key"`
	HubURLs     []string             `json:"hubUrls"`
	ICEServers  []config.RelayServer `json:"iceServers,omitempty"`
}

// LinkKey decodes the invite's signing key.
func (i Invite) LinkKey() ([]byte, error) {
	key, err := base64.RawURLEncoding.DecodeString(i.Key)
	if err != nil || len(key) != linkKeySize {
		return nil, fmt.Errorf("%w: bad key", ErrInvalidLink)
	}
	return key, nil
}

// EncodeLink builds the pairing link for invite under baseURL.
func EncodeLink(baseURL string, invite Invite) (string, error) {
	payload, err := json.Marshal(invite)
	if err != nil {
		return "", fmt.Errorf("failed to encode invite: %w", err)
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return baseURL + linkSegment + base64.RawURLEncoding.EncodeToString(payload), nil
}

// DecodeLink extracts the invite from a pairing link.
func DecodeLink(link string) (Invite, error) {
	idx := strings.LastIndex(link, "/"+linkSegment)
	if idx < 0 {
		return Invite{}, fmt.Errorf("%w: no %q segment", ErrInvalidLink, linkSegment)
	}
	encoded := link[idx+len(linkSegment)+1:]
	payload, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return Invite{}, fmt.Errorf("%w: %v", ErrInvalidLink, err)
	}

	var invite Invite
	if err := json.Unmarshal(payload, &invite); err != nil {
		return Invite{}, fmt.Errorf("%w: %v", ErrInvalidLink, err)
	}
	if invite.Channel == "" || len(invite.HubURLs) == 0 {
		return Invite{}, fmt.Errorf("%w: missing channel or hub", ErrInvalidLink)
	}
	if _, err := invite.LinkKey(); err != nil {
		return Invite{}, err
	}
	return invite, nil
}

// ReplyURL returns where a pairing reply for channel is posted on hubURL.
func ReplyURL(hubURL, channel string) string {
	return strings.TrimSuffix(hubURL, "/") + "/pairing/" + url.PathEscape(channel)
}

// PostReply sends a signed reply to the first hub of the invite.
func PostReply(ctx context.Context, client *http.Client, invite Invite, reply Reply) error {
	if client == nil {
		client = http.DefaultClient
	}
	if len(invite.HubURLs) == 0 {
		return fmt.Errorf("%w: no hub url", ErrInvalidLink)
	}
	body, err := json.Marshal(reply)
	if err != nil {
		return fmt.Errorf("failed to encode reply: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ReplyURL(invite.HubURLs[0], invite.Channel), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build reply request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post reply: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("hub answered %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}
	return nil
}
