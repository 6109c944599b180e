package tenant

import (
	"context"
	"errors"
	"testing"

	pkgerrors "github.com/auricsoft/jewelstock-backend/pkg/errors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type tenantTestModel struct {
	ID   int
	Name string
}

func openHandle(t *testing.T, dsn string) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&tenantTestModel{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return conn
}

func TestRegistryIsolatesTenants(t *testing.T) {
	acme := openHandle(t, "file:acme?mode=memory&cache=shared")
	orient := openHandle(t, "file:orient?mode=memory&cache=shared")

	reg := NewRegistryFromHandles(map[string]*gorm.DB{
		"acme":   acme,
		"orient": orient,
	}, "acme")

	ctx := WithCode(context.Background(), "acme")
	handle, err := reg.Handle(ctx)
	if err != nil {
		t.Fatalf("unexpected resolve error: %v", err)
	}
	if err := handle.Create(&tenantTestModel{Name: "ring"}).Error; err != nil {
		t.Fatalf("create failed: %v", err)
	}

	var count int64
	if err := orient.Model(&tenantTestModel{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("write leaked into the other tenant store: %d rows", count)
	}
}

func TestRegistryUnknownTenantRejected(t *testing.T) {
	acme := openHandle(t, "file:unknown_tenant?mode=memory&cache=shared")
	reg := NewRegistryFromHandles(map[string]*gorm.DB{"acme": acme}, "acme")

	_, err := reg.Handle(WithCode(context.Background(), "ghost"))
	if err == nil {
		t.Fatal("expected unknown tenant to be rejected")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden error, got %v", err)
	}
}

func TestRegistryDefaultsWhenNoCodeBound(t *testing.T) {
	acme := openHandle(t, "file:default_code?mode=memory&cache=shared")
	reg := NewRegistryFromHandles(map[string]*gorm.DB{"acme": acme}, "acme")

	if _, err := reg.Handle(context.Background()); err != nil {
		t.Fatalf("expected default tenant fallback, got %v", err)
	}
}

func TestRegistryWithTxRollsBack(t *testing.T) {
	acme := openHandle(t, "file:tx_rollback?mode=memory&cache=shared")
	reg := NewRegistryFromHandles(map[string]*gorm.DB{"acme": acme}, "acme")
	ctx := WithCode(context.Background(), "acme")

	err := reg.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&tenantTestModel{Name: "pendant"}).Error; err != nil {
			return err
		}
		return errors.New("boom")
	})
	if err == nil {
		t.Fatal("expected error to surface")
	}

	var count int64
	if err := acme.Model(&tenantTestModel{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected rollback, found %d rows", count)
	}
}
