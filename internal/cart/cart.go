// Package cart keeps a request-scoped mirror of a signed-in user's cart
// lines and applies add, update and remove operations against the store.
//
// Every successful write is followed by a fresh read of the user's lines.
// Store errors are logged and swallowed: a failed write leaves the mirror
// untouched and a failed read keeps the last lines that were read.
package cart

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/safar/go-storefront/internal/database"
	"github.com/safar/go-storefront/internal/models"
	"github.com/safar/go-storefront/internal/pricing"
)

// Store is the remote cart_items table as seen by one cart.
type Store interface {
	ListLines(ctx context.Context, userID string) ([]models.CartLine, error)
	FindLine(ctx context.Context, userID, productID string) (*models.CartLine, error)
	InsertLine(ctx context.Context, userID, productID string, quantity int) error
	SetQuantity(ctx context.Context, userID, lineID string, quantity int) error
	DeleteLine(ctx context.Context, userID, lineID string) error
	DeleteAllLines(ctx context.Context, userID string) error
}

type Cart struct {
	store     Store
	logger    logrus.FieldLogger
	userID    string
	lines     []models.CartLine
	itemCount int
}

// New binds a cart to userID. An empty userID yields an inert cart whose
// operations do nothing.
func New(store Store, logger logrus.FieldLogger, userID string) *Cart {
	return &Cart{
		store:  store,
		logger: logger.WithField("user_id", userID),
		userID: userID,
		lines:  []models.CartLine{},
	}
}

// Load builds a cart and reads its lines once.
func Load(ctx context.Context, store Store, logger logrus.FieldLogger, userID string) *Cart {
	c := New(store, logger, userID)
	c.Refresh(ctx)
	return c
}

func (c *Cart) UserID() string {
	return c.userID
}

func (c *Cart) active() bool {
	return c.userID != ""
}

// Refresh replaces the mirror with the store's current lines.
func (c *Cart) Refresh(ctx context.Context) {
	if !c.active() {
		return
	}

	lines, err := c.store.ListLines(ctx, c.userID)
	if err != nil {
		c.logger.WithError(err).Warn("cart: read lines failed, keeping previous state")
		return
	}
	c.setLines(lines)
}

func (c *Cart) setLines(lines []models.CartLine) {
	if lines == nil {
		lines = []models.CartLine{}
	}
	c.lines = lines

	count := 0
	for _, l := range lines {
		count += l.Quantity
	}
	c.itemCount = count
}

// AddItem adds quantity units of productID, merging into the existing line
// for that product when there is one. Quantities below 1 count as 1.
func (c *Cart) AddItem(ctx context.Context, productID string, quantity int) {
	if !c.active() {
		return
	}
	if quantity < 1 {
		quantity = 1
	}

	log := c.logger.WithFields(logrus.Fields{"op": "add", "product_id": productID, "quantity": quantity})

	existing, err := c.store.FindLine(ctx, c.userID, productID)
	switch {
	case err == nil:
		if err := c.store.SetQuantity(ctx, c.userID, existing.ID, existing.Quantity+quantity); err != nil {
			log.WithError(err).WithField("line_id", existing.ID).Error("cart: update line failed")
			return
		}
	case errors.Is(err, database.ErrCartLineNotFound):
		if err := c.store.InsertLine(ctx, c.userID, productID, quantity); err != nil {
			log.WithError(err).Error("cart: insert line failed")
			return
		}
	default:
		log.WithError(err).Error("cart: find line failed")
		return
	}

	c.Refresh(ctx)
}

// UpdateQuantity sets a line's quantity. Zero or less removes the line.
// Stock limits are not checked here.
func (c *Cart) UpdateQuantity(ctx context.Context, lineID string, quantity int) {
	if !c.active() {
		return
	}
	if quantity <= 0 {
		c.RemoveItem(ctx, lineID)
		return
	}

	if err := c.store.SetQuantity(ctx, c.userID, lineID, quantity); err != nil {
		c.logger.WithError(err).WithFields(logrus.Fields{
			"op": "update", "line_id": lineID, "quantity": quantity,
		}).Error("cart: update line failed")
		return
	}

	c.Refresh(ctx)
}

// RemoveItem deletes a line. Removing a line that is already gone succeeds.
func (c *Cart) RemoveItem(ctx context.Context, lineID string) {
	if !c.active() {
		return
	}

	if err := c.store.DeleteLine(ctx, c.userID, lineID); err != nil {
		c.logger.WithError(err).WithFields(logrus.Fields{
			"op": "remove", "line_id": lineID,
		}).Error("cart: delete line failed")
		return
	}

	c.Refresh(ctx)
}

func (c *Cart) Clear(ctx context.Context) {
	if !c.active() {
		return
	}

	if err := c.store.DeleteAllLines(ctx, c.userID); err != nil {
		c.logger.WithError(err).WithField("op", "clear").Error("cart: clear failed")
		return
	}

	c.Refresh(ctx)
}

// Lines returns a copy of the mirrored lines in store order.
func (c *Cart) Lines() []models.CartLine {
	out := make([]models.CartLine, len(c.lines))
	copy(out, c.lines)
	return out
}

// Line returns the mirrored line with the given id.
func (c *Cart) Line(lineID string) (models.CartLine, bool) {
	for _, l := range c.lines {
		if l.ID == lineID {
			return l, true
		}
	}
	return models.CartLine{}, false
}

// LineForProduct returns the oldest mirrored line for productID.
func (c *Cart) LineForProduct(productID string) (models.CartLine, bool) {
	for _, l := range c.lines {
		if l.ProductID == productID {
			return l, true
		}
	}
	return models.CartLine{}, false
}

func (c *Cart) ItemCount() int {
	return c.itemCount
}

func (c *Cart) Summary() pricing.Summary {
	return pricing.Summarize(c.lines)
}
