package repository

import (
	"context"
	"errors"

	"ferrepos/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ProveedorRepository interface {
	Create(ctx context.Context, p *model.Proveedor) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Proveedor, error)
	// FindByCUIT returns (nil, nil) when no supplier carries that CUIT.
	FindByCUIT(ctx context.Context, cuit string) (*model.Proveedor, error)
	List(ctx context.Context) ([]model.Proveedor, error)
	Update(ctx context.Context, p *model.Proveedor) error
	SoftDelete(ctx context.Context, id uuid.UUID) error

	// Cuentas por pagar
	CreateCuenta(ctx context.Context, c *model.CuentaPorPagar) error
	FindCuentaByID(ctx context.Context, id uuid.UUID) (*model.CuentaPorPagar, error)
	ListCuentasByProveedor(ctx context.Context, proveedorID uuid.UUID) ([]model.CuentaPorPagar, error)
	UpdateCuentaTx(tx *gorm.DB, c *model.CuentaPorPagar) error
	SumSaldoPendiente(ctx context.Context, proveedorID uuid.UUID) (decimal.Decimal, error)

	// Pagos — append-only, like caja movements
	CreatePagoTx(tx *gorm.DB, p *model.PagoProveedor) error
	ListPagosByCuenta(ctx context.Context, cuentaID uuid.UUID) ([]model.PagoProveedor, error)

	DB() *gorm.DB
}

type proveedorRepo struct{ db *gorm.DB }

func NewProveedorRepository(db *gorm.DB) ProveedorRepository { return &proveedorRepo{db: db} }

func (r *proveedorRepo) DB() *gorm.DB { return r.db }

func (r *proveedorRepo) Create(ctx context.Context, p *model.Proveedor) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *proveedorRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Proveedor, error) {
	var p model.Proveedor
	err := r.db.WithContext(ctx).First(&p, id).Error
	return &p, err
}

func (r *proveedorRepo) FindByCUIT(ctx context.Context, cuit string) (*model.Proveedor, error) {
	var p model.Proveedor
	err := r.db.WithContext(ctx).Where("cuit = ?", cuit).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *proveedorRepo) List(ctx context.Context) ([]model.Proveedor, error) {
	var proveedores []model.Proveedor
	err := r.db.WithContext(ctx).Where("activo = true").Order("razon_social ASC").Find(&proveedores).Error
	return proveedores, err
}

func (r *proveedorRepo) Update(ctx context.Context, p *model.Proveedor) error {
	return r.db.WithContext(ctx).Save(p).Error
}

func (r *proveedorRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&model.Proveedor{}).Where("id = ?", id).Update("activo", false).Error
}

func (r *proveedorRepo) CreateCuenta(ctx context.Context, c *model.CuentaPorPagar) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *proveedorRepo) FindCuentaByID(ctx context.Context, id uuid.UUID) (*model.CuentaPorPagar, error) {
	var c model.CuentaPorPagar
	err := r.db.WithContext(ctx).First(&c, id).Error
	return &c, err
}

func (r *proveedorRepo) ListCuentasByProveedor(ctx context.Context, proveedorID uuid.UUID) ([]model.CuentaPorPagar, error) {
	var cuentas []model.CuentaPorPagar
	err := r.db.WithContext(ctx).
		Where("proveedor_id = ?", proveedorID).
		Order("created_at DESC").
		Find(&cuentas).Error
	return cuentas, err
}

func (r *proveedorRepo) UpdateCuentaTx(tx *gorm.DB, c *model.CuentaPorPagar) error {
	return tx.Save(c).Error
}

func (r *proveedorRepo) SumSaldoPendiente(ctx context.Context, proveedorID uuid.UUID) (decimal.Decimal, error) {
	var saldo decimal.Decimal
	err := r.db.WithContext(ctx).Model(&model.CuentaPorPagar{}).
		Where("proveedor_id = ? AND estado <> ?", proveedorID, model.CuentaPagada).
		Select("COALESCE(SUM(saldo_pendiente), 0)").
		Scan(&saldo).Error
	return saldo, err
}

func (r *proveedorRepo) CreatePagoTx(tx *gorm.DB, p *model.PagoProveedor) error {
	return tx.Create(p).Error
}

func (r *proveedorRepo) ListPagosByCuenta(ctx context.Context, cuentaID uuid.UUID) ([]model.PagoProveedor, error) {
	var pagos []model.PagoProveedor
	err := r.db.WithContext(ctx).
		Where("cuenta_por_pagar_id = ?", cuentaID).
		Order("created_at ASC").
		Find(&pagos).Error
	return pagos, err
}
