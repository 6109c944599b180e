package tenant

import (
	"context"
	"fmt"
	"sort"

	"gorm.io/gorm"

	"github.com/auricsoft/jewelstock-backend/pkg/config"
	"github.com/auricsoft/jewelstock-backend/pkg/db"
	pkgerrors "github.com/auricsoft/jewelstock-backend/pkg/errors"
	"github.com/auricsoft/jewelstock-backend/pkg/logger"
)

// Resolver supplies the store handle for the tenant bound to the context.
type Resolver interface {
	Handle(ctx context.Context) (*gorm.DB, error)
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Registry is the production Resolver: a fixed map from tenant code to that
// tenant's dedicated connection, dialed once at boot.
type Registry struct {
	handles     map[string]*gorm.DB
	closers     []func() error
	defaultCode string
}

// NewRegistry dials every configured tenant DSN. The default DB DSN backs the
// default tenant code unless the map overrides it.
func NewRegistry(ctx context.Context, dbCfg config.DBConfig, tenants config.TenantsConfig, logg *logger.Logger) (*Registry, error) {
	reg := &Registry{
		handles:     map[string]*gorm.DB{},
		defaultCode: tenants.DefaultCode,
	}

	dsns := map[string]string{}
	if tenants.DefaultCode != "" && dbCfg.DSN != "" {
		dsns[tenants.DefaultCode] = dbCfg.DSN
	}
	for code, dsn := range tenants.DSNs {
		dsns[code] = dsn
	}
	if len(dsns) == 0 {
		return nil, fmt.Errorf("no tenant stores configured")
	}

	// Deterministic dial order keeps boot logs stable.
	codes := make([]string, 0, len(dsns))
	for code := range dsns {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	for _, code := range codes {
		client, err := db.Open(ctx, dbCfg, dsns[code], nil)
		if err != nil {
			_ = reg.Close()
			return nil, fmt.Errorf("dialing tenant %q: %w", code, err)
		}
		reg.handles[code] = client.DB()
		reg.closers = append(reg.closers, client.Close)
		if logg != nil {
			logg.Info(logg.WithTenant(ctx, code), "tenant store connected")
		}
	}

	return reg, nil
}

// NewRegistryFromHandles builds a Registry over pre-opened connections.
// Tests use it to wire sqlite stores.
func NewRegistryFromHandles(handles map[string]*gorm.DB, defaultCode string) *Registry {
	copied := make(map[string]*gorm.DB, len(handles))
	for code, handle := range handles {
		copied[code] = handle
	}
	return &Registry{handles: copied, defaultCode: defaultCode}
}

// Handle returns the store handle for the tenant bound to ctx. A missing
// code falls back to the default tenant; an unknown code is rejected so one
// tenant can never read another's store by accident.
func (r *Registry) Handle(ctx context.Context) (*gorm.DB, error) {
	code := CodeFromContext(ctx)
	if code == "" {
		code = r.defaultCode
	}
	handle, ok := r.handles[code]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "unknown tenant").WithDetails(map[string]any{"tenant": code})
	}
	return handle.WithContext(ctx), nil
}

// WithTx resolves the tenant store and executes fn inside a transaction,
// rolling back on error/panic.
func (r *Registry) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	handle, err := r.Handle(ctx)
	if err != nil {
		return err
	}

	tx := handle.Begin()
	if tx.Error != nil {
		return tx.Error
	}

	defer func() {
		if rec := recover(); rec != nil {
			tx.Rollback()
			panic(rec)
		}
	}()

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	return tx.Commit().Error
}

// Ping verifies every tenant store is reachable.
func (r *Registry) Ping(ctx context.Context) error {
	for code, handle := range r.handles {
		sqlDB, err := handle.DB()
		if err != nil {
			return fmt.Errorf("tenant %q: %w", code, err)
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			return fmt.Errorf("tenant %q: %w", code, err)
		}
	}
	return nil
}

// Codes lists the configured tenant codes.
func (r *Registry) Codes() []string {
	codes := make([]string, 0, len(r.handles))
	for code := range r.handles {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Close releases every tenant connection.
func (r *Registry) Close() error {
	var firstErr error
	for _, closeFn := range r.closers {
		if err := closeFn(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
