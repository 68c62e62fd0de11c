// Package voucher issues promotional codes shown on the welcome screen.
package voucher

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/m3rciful/shopbot/core/logger"
	"github.com/m3rciful/shopbot/internal/shop"
)

// DefaultPrefix starts every code unless configured otherwise.
const DefaultPrefix = "SHOP"

// Generator derives codes from random UUIDs, e.g. SHOP-1F0C9A2B.
type Generator struct {
	prefix string
	newID  func() (uuid.UUID, error)
}

var _ shop.Vouchers = (*Generator)(nil)

// New returns a generator using prefix, or DefaultPrefix when empty.
func New(prefix string) *Generator {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Generator{prefix: prefix, newID: uuid.NewRandom}
}

// Generate returns a fresh code for req.
func (g *Generator) Generate(ctx context.Context, req shop.VoucherRequest) (string, error) {
	id, err := g.newID()
	if err != nil {
		return "", err
	}
	hex := strings.ReplaceAll(id.String(), "-", "")
	code := g.prefix + "-" + strings.ToUpper(hex[:8])
	logger.LogEvent(ctx, logger.Shop, slog.LevelDebug, "voucher.issue",
		slog.Int64("shop_id", req.ShopID),
		slog.String("code", code),
	)
	return code, nil
}
