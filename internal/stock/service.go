package stock

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/auricsoft/jewelstock-backend/pkg/db/models"
	pkgerrors "github.com/auricsoft/jewelstock-backend/pkg/errors"
	"github.com/auricsoft/jewelstock-backend/pkg/types"
)

// Position is a point-in-time stock reading.
type Position struct {
	Quantity int             `json:"quantity"`
	Value    decimal.Decimal `json:"value"`
	AsOf     time.Time       `json:"as_of"`
}

// Service resolves current stock from the ledger. Reads only; the ledger and
// snapshots are written elsewhere.
type Service interface {
	GetProductStock(ctx context.Context, productID uuid.UUID) (*Position, error)
	GetBranchStock(ctx context.Context, branchID uuid.UUID) (*Position, error)
	GetCounterStock(ctx context.Context, counterID uuid.UUID) (*Position, error)
	GetCategoryStock(ctx context.Context, category string) (*Position, error)
}

type snapshotReader interface {
	LatestBefore(ctx context.Context, productID uuid.UUID, date time.Time) (*models.DailyBalanceSnapshot, error)
}

type service struct {
	repo      Repository
	snapshots snapshotReader
}

// NewService wires a stock resolver. Snapshots are optional; without them
// every product read sums the full ledger.
func NewService(repo Repository, snapshots snapshotReader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("stock repository required")
	}
	return &service{repo: repo, snapshots: snapshots}, nil
}

// GetProductStock resolves a product's position from the latest snapshot plus
// the ledger tail after it, falling back to a full ledger sum when no
// snapshot exists. Both derivations agree because snapshots are themselves
// ledger sums.
func (s *service) GetProductStock(ctx context.Context, productID uuid.UUID) (*Position, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}

	position := &Position{Value: decimal.Zero, AsOf: time.Now().UTC()}
	tailStart := time.Time{}
	if s.snapshots != nil {
		// Only snapshots from prior days count. A snapshot dated today
		// would push the tail past today's movements.
		snapshot, err := s.snapshots.LatestBefore(ctx, productID, types.DateOf(position.AsOf))
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		if snapshot != nil {
			position.Quantity = snapshot.ClosingQty
			position.Value = snapshot.ClosingValue
			tailStart = types.NextDay(snapshot.BalanceDate)
		}
	}

	tail, err := s.repo.SumProductSince(ctx, productID, tailStart)
	if err != nil {
		return nil, err
	}
	position.Quantity += tail.Quantity
	position.Value = position.Value.Add(tail.Value)
	return position, nil
}

func (s *service) GetBranchStock(ctx context.Context, branchID uuid.UUID) (*Position, error) {
	if branchID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "branch id is required")
	}
	agg, err := s.repo.SumByBranch(ctx, branchID)
	if err != nil {
		return nil, err
	}
	return positionOf(agg), nil
}

func (s *service) GetCounterStock(ctx context.Context, counterID uuid.UUID) (*Position, error) {
	if counterID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "counter id is required")
	}
	agg, err := s.repo.SumByCounter(ctx, counterID)
	if err != nil {
		return nil, err
	}
	return positionOf(agg), nil
}

func (s *service) GetCategoryStock(ctx context.Context, category string) (*Position, error) {
	if strings.TrimSpace(category) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category is required")
	}
	agg, err := s.repo.SumByCategory(ctx, strings.TrimSpace(category))
	if err != nil {
		return nil, err
	}
	return positionOf(agg), nil
}

func positionOf(agg *Aggregate) *Position {
	return &Position{Quantity: agg.Quantity, Value: agg.Value, AsOf: time.Now().UTC()}
}
