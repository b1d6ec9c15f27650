package core

// 商品记录的属性名。
const (
	FieldProductID         = "product_id"
	FieldName              = "name"
	FieldCategory          = "category"
	FieldBrand             = "brand"
	FieldDepartment        = "department"
	FieldCost              = "cost"
	FieldRetailPrice       = "retail_price"
	FieldProfitMargin      = "profit_margin_percent"
	FieldTotalOrders       = "total_orders"
	FieldReturnRate        = "return_rate_percent"
	FieldReliability       = "supplier_reliability_score"
	FieldAvgSalePrice      = "avg_sale_price"
	FieldTotalRevenue      = "total_revenue"
	FieldDailySalesRate    = "daily_sales_rate"
	FieldDaysSinceCreation = "days_since_creation"
	FieldTotalItemsSold    = "total_items_sold"
)

// Departments 是 department 属性的封闭取值集合。
var Departments = []string{"Women", "Men", "Kids"}

// Categories 是 category 属性的封闭取值集合。
var Categories = []string{
	"Accessories", "Plus", "Swim", "Active", "Socks & Hosiery", "Socks", "Dresses",
	"Pants & Capris", "Fashion Hoodies & Sweatshirts", "Skirts", "Blazers & Jackets", "Suits",
	"Tops & Tees", "Sweaters", "Shorts", "Jeans", "Maternity", "Sleep & Lounge", "Suits & Sport Coats",
	"Pants", "Intimates", "Outerwear & Coats", "Underwear", "Leggings", "Jumpsuits & Rompers", "Clothing Sets",
}

func numeric(name string, min, max float64, roles Role) Attribute {
	return Attribute{Name: name, Kind: AttrNumeric, Roles: roles, Min: min, Max: max}
}

// DefaultAttributes 返回商品记录的属性声明。
// 数值值域用于截断 LLM 产出的过滤边界，不影响 Space 的归一化边界。
func DefaultAttributes() []Attribute {
	const (
		opt  = RoleOptimizable | RoleFilterable
		filt = RoleFilterable
	)
	return []Attribute{
		{Name: FieldName, Kind: AttrText, Roles: RoleEmbeddable},
		{Name: FieldCategory, Kind: AttrCategorical, Roles: RoleEmbeddable | RoleFilterable, Options: Categories},
		{Name: FieldBrand, Kind: AttrCategorical, Roles: RoleEmbeddable | RoleFilterable, DynamicOptions: true},
		{Name: FieldDepartment, Kind: AttrCategorical, Roles: RoleFilterable, Options: Departments},
		numeric(FieldCost, 0, 1000, opt),
		numeric(FieldRetailPrice, 0, 10000, filt),
		numeric(FieldProfitMargin, 0, 100, opt),
		numeric(FieldTotalOrders, 0, 1e9, opt),
		numeric(FieldReturnRate, 0, 100, opt),
		numeric(FieldReliability, 0, 10, opt),
		numeric(FieldAvgSalePrice, 0, 10000, filt),
		numeric(FieldTotalRevenue, 0, 1e12, opt),
		numeric(FieldDailySalesRate, 0, 1e9, 0),
		numeric(FieldDaysSinceCreation, 0, 1e6, filt),
		numeric(FieldTotalItemsSold, 0, 1e9, 0),
	}
}

// DefaultCatalog 返回商品 Catalog。声明是静态的，构建失败属于编程错误。
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(FieldProductID, DefaultAttributes()...)
	if err != nil {
		panic(err)
	}
	return c
}
