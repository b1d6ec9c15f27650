package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCatalog_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		id    string
		attrs []Attribute
	}{
		{name: "missing id", id: "", attrs: nil},
		{name: "empty attribute name", id: "id", attrs: []Attribute{{Kind: AttrText}}},
		{name: "attribute shadows id", id: "id", attrs: []Attribute{{Name: "id", Kind: AttrText}}},
		{name: "duplicate", id: "id", attrs: []Attribute{
			{Name: "a", Kind: AttrText},
			{Name: "a", Kind: AttrCategorical},
		}},
		{name: "no kind", id: "id", attrs: []Attribute{{Name: "a"}}},
		{name: "inverted domain", id: "id", attrs: []Attribute{{Name: "a", Kind: AttrNumeric, Min: 10, Max: 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCatalog(tt.id, tt.attrs...)
			require.Error(t, err)
			assert.True(t, IsConfiguration(err), "got %v", err)
		})
	}
}

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()
	assert.Equal(t, FieldProductID, c.IDField())

	for _, name := range []string{
		FieldDepartment, FieldCategory, FieldBrand, FieldCost, FieldRetailPrice,
		FieldProfitMargin, FieldReturnRate, FieldTotalOrders, FieldTotalRevenue,
		FieldReliability, FieldAvgSalePrice, FieldDaysSinceCreation,
	} {
		assert.True(t, c.Filterable(name), name)
	}
	assert.False(t, c.Filterable(FieldName))
	assert.False(t, c.Filterable("unknown"))

	dept, ok := c.Attribute(FieldDepartment)
	require.True(t, ok)
	assert.True(t, dept.AllowsOption("Women"))
	assert.False(t, dept.AllowsOption("Pets"))

	brand, _ := c.Attribute(FieldBrand)
	assert.True(t, brand.DynamicOptions)
	assert.Len(t, Categories, 26)
}

func TestCatalog_Conform(t *testing.T) {
	c := DefaultCatalog()

	e, err := c.Conform(map[string]any{
		"product_id":            "PROD001",
		"name":                  "Classic Blue Jeans",
		"category":              "Jeans",
		"department":            "Women",
		"cost":                  "25.00",
		"profit_margin_percent": 72.2,
		"total_orders":          150,
		"return_rate_percent":   "",
		"unknown_column":        "ignored",
	})
	require.NoError(t, err)
	assert.Equal(t, "PROD001", e.ID)
	assert.Equal(t, "Jeans", e.Strings[FieldCategory])
	assert.Equal(t, 25.0, e.Numbers[FieldCost])
	assert.Equal(t, 150.0, e.Numbers[FieldTotalOrders])
	_, ok := e.NumberValue(FieldReturnRate)
	assert.False(t, ok, "empty cell is treated as missing")
	_, ok = e.Fields()["unknown_column"]
	assert.False(t, ok)
	require.NoError(t, c.Check(e))

	_, err = c.Conform(map[string]any{"name": "no id"})
	assert.True(t, IsInvalidInput(err))

	_, err = c.Conform(map[string]any{"product_id": "X", "cost": "cheap"})
	assert.True(t, IsInvalidInput(err))
}

func TestCatalog_Check(t *testing.T) {
	c := DefaultCatalog()
	e := NewEntity("1")
	e.Numbers[FieldName] = 3
	assert.True(t, IsInvalidInput(c.Check(e)))

	e = NewEntity("1")
	e.Strings[FieldCost] = "3"
	assert.True(t, IsInvalidInput(c.Check(e)))

	assert.True(t, IsInvalidInput(c.Check(nil)))
}

func TestEntity_TextAndClone(t *testing.T) {
	e := NewEntity("1")
	e.Strings[FieldName] = "  Wool Coat "
	e.Strings[FieldBrand] = ""
	e.Strings[FieldCategory] = "Outerwear & Coats"
	assert.Equal(t, "Wool Coat Outerwear & Coats", e.Text(FieldName, FieldBrand, FieldCategory))

	cp := e.Clone()
	assert.True(t, cp.Equal(e))
	cp.Strings[FieldName] = "changed"
	assert.False(t, cp.Equal(e))
	assert.Equal(t, "  Wool Coat ", e.Strings[FieldName])
}

func TestDomainError_Wrapping(t *testing.T) {
	cause := errors.New("connection refused")
	err := WrapError(ModuleNLQ, ErrorCodeExternalService, "complete", cause)

	assert.ErrorIs(t, err, cause)
	assert.True(t, IsExternalService(err))
	assert.Equal(t, "complete: connection refused", err.Error())

	wrapped := errors.Join(errors.New("outer"), ErrStoreNotFound)
	assert.True(t, IsStoreNotFound(wrapped))
	assert.ErrorIs(t, Errorf(ModuleStore, ErrorCodeNotFound, "key %s", "x"), ErrStoreNotFound)
	assert.NotErrorIs(t, Errorf(ModuleIndex, ErrorCodeNotFound, "id"), ErrStoreNotFound)
}

func TestItem_PutLabel(t *testing.T) {
	it := NewItem("1")
	it.PutLabel("rank_space", Label{Value: "cost", Source: "space"})
	it.PutLabel("rank_space", Label{Value: "text", Source: "space"})
	assert.Equal(t, Label{Value: "cost|text", Source: "space,space"}, it.Labels["rank_space"])
}
