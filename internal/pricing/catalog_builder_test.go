package pricing

import (
	"github.com/CiaranKeogh/Portfolio-Projects/internal/domain/entities"
)

const (
	uomTablet int64 = 428673006
	uomMg     int64 = 258684004
	formTab   int64 = 385055001
)

// catalogBuilder assembles small catalogs for engine tests
type catalogBuilder struct {
	c *entities.Catalog
}

func newCatalog() *catalogBuilder {
	return &catalogBuilder{c: entities.NewCatalog()}
}

func (b *catalogBuilder) vmp(vpid int64, ingredient string, strength float64) *catalogBuilder {
	unit := uomMg
	b.c.VirtualProducts[vpid] = &entities.VirtualProduct{
		ID:   vpid,
		Name: ingredient,
		Ingredients: []entities.Ingredient{
			{ProductID: vpid, SubstanceID: vpid * 10, Name: ingredient, Strength: &strength, StrengthUnit: &unit},
		},
		FormCodes: []int64{formTab},
	}
	return b
}

func (b *catalogBuilder) vmpp(vppid, vpid int64, qty float64) *catalogBuilder {
	b.c.VirtualPacks[vppid] = &entities.VirtualPack{ID: vppid, ProductID: vpid, Quantity: qty, QuantityUnit: uomTablet}
	return b
}

func (b *catalogBuilder) amp(apid, vpid int64) *catalogBuilder {
	b.c.ActualProducts[apid] = &entities.ActualProduct{ID: apid, VirtualProductID: vpid, AvailabilityCode: 1}
	return b
}

func (b *catalogBuilder) ampp(appid, apid, vppid int64) *catalogBuilder {
	b.c.ActualPacks[appid] = &entities.ActualPack{ID: appid, ProductID: apid, VirtualPackID: vppid}
	b.c.PackInfo[appid] = &entities.PackInfo{PackID: appid, ReimbursementStatus: 1}
	return b
}

func (b *catalogBuilder) price(appid, pence int64) *catalogBuilder {
	b.c.PriceRecords[appid] = &entities.PriceRecord{PackID: appid, Price: &pence}
	return b
}

func (b *catalogBuilder) record(r *entities.PriceRecord) *catalogBuilder {
	b.c.PriceRecords[r.PackID] = r
	return b
}

func (b *catalogBuilder) snapshot() *Snapshot {
	return NewSnapshot(b.c)
}

func int64Ptr(v int64) *int64 {
	return &v
}
