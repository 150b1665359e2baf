package coupon

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/Lokeshwarrior12/FineDine/internal/common/domain"
	"github.com/Lokeshwarrior12/FineDine/internal/domain/offer"
)

const (
	codePrefix    = "FD"
	suffixLength  = 4
	base36Letters = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// Payload is the machine-readable content of a coupon QR code. It carries
// enough for a scanner to show the deal offline; redemption still goes
// through the server.
type Payload struct {
	Code       string     `json:"code"`
	Restaurant string     `json:"restaurant"`
	Discount   int        `json:"discount"`
	Type       offer.Type `json:"type"`
}

// Generator produces coupon codes and QR payloads.
type Generator struct {
	random io.Reader
}

// NewGenerator returns a Generator backed by crypto/rand.
func NewGenerator() *Generator {
	return &Generator{random: rand.Reader}
}

// NewGeneratorWithSource returns a Generator reading randomness from r.
func NewGeneratorWithSource(r io.Reader) *Generator {
	return &Generator{random: r}
}

// Generate returns a code of the form FD-<base36 millis>-<4 random chars>
// and the JSON payload for o.
func (g *Generator) Generate(o *offer.Offer, now time.Time) (string, string, error) {
	suffix, err := g.suffix()
	if err != nil {
		return "", "", fmt.Errorf("generate code suffix: %w", err)
	}
	code := strings.ToUpper(fmt.Sprintf("%s-%s-%s", codePrefix, strconv.FormatInt(now.UnixMilli(), 36), suffix))

	raw, err := json.Marshal(Payload{
		Code:       code,
		Restaurant: o.RestaurantName(),
		Discount:   o.DiscountPercentage(),
		Type:       o.OfferType(),
	})
	if err != nil {
		return "", "", fmt.Errorf("encode qr payload: %w", err)
	}
	return code, string(raw), nil
}

func (g *Generator) suffix() (string, error) {
	var b strings.Builder
	radix := big.NewInt(int64(len(base36Letters)))
	for i := 0; i < suffixLength; i++ {
		n, err := rand.Int(g.random, radix)
		if err != nil {
			return "", err
		}
		b.WriteByte(base36Letters[n.Int64()])
	}
	return b.String(), nil
}

// ParsePayload extracts the coupon code from either a scanned QR payload or
// a code typed in by hand.
func ParsePayload(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", domain.NewValidationError("coupon code is required")
	}
	if strings.HasPrefix(s, "{") {
		var p Payload
		if err := json.Unmarshal([]byte(s), &p); err != nil {
			return "", domain.NewValidationError("malformed qr payload")
		}
		s = strings.TrimSpace(p.Code)
		if s == "" {
			return "", domain.NewValidationError("qr payload has no code")
		}
	}
	return strings.ToUpper(s), nil
}
