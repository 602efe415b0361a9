package masq

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"strconv"

	"golang.org/x/crypto/hkdf"
)

const linkKeySize = 32

// Reply is the pairing application's answer on a channel.
type Reply struct {
	Channel   string `json:"channel"`
	Accepted  bool   `json:"accepted"`
	ProfileID string `json:"profileId,omitempty"`
	Username  string `json:"username,omitempty"`
	Signature string `json:"signature"`
}

func (r Reply) payload() []byte {
	// NUL separators keep field boundaries unambiguous.
	parts := []string{r.Channel, strconv.FormatBool(r.Accepted), r.ProfileID, r.Username}
	var out []byte
	for i, p := range parts {
		if i > 0 {
			out = append(out, 0)
		}
		out = append(out, p...)
	}
	return out
}

// Sign fills in the reply signature using the link key.
func (r *Reply) Sign(linkKey []byte) error {
	mac, err := replyMAC(linkKey, r.Channel, r.payload())
	if err != nil {
		return err
	}
	r.Signature = base64.RawURLEncoding.EncodeToString(mac)
	return nil
}

// Verify checks the reply signature against the link key.
func (r Reply) Verify(linkKey []byte) error {
	got, err := base64.RawURLEncoding.DecodeString(r.Signature)
	if err != nil {
		return ErrBadSignature
	}
	want, err := replyMAC(linkKey, r.Channel, r.payload())
	if err != nil {
		return err
	}
	if !hmac.Equal(got, want) {
		return ErrBadSignature
	}
	return nil
}

// replyMAC authenticates payload with a key derived from the link key and
// bound to the channel.
func replyMAC(linkKey []byte, channel string, payload []byte) ([]byte, error) {
	h := hkdf.New(sha256.New, linkKey, []byte(channel), []byte("pairing-reply"))
	key := make([]byte, 32)
	if _, err := io.ReadFull(h, key); err != nil {
		return nil, fmt.Errorf("failed to derive reply key: %w", err)
	}
	mac := hmac.New(sha256.New, key)
	mac.Write(payload)
	return mac.Sum(nil), nil
}

func newLinkKey() ([]byte, error) {
	key := make([]byte, linkKeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("failed to generate link key: %w", err)
	}
	return key, nil
}
