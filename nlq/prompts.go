package nlq

// SystemPrompt 是抽取任务的系统指令。
const SystemPrompt = "You are a procurement assistant that extracts search parameters from business queries. " +
	"Focus on business objectives like cost optimization, supplier reliability, " +
	"product performance, and specific product requirements. " +
	"Consider seasonal trends, inventory turnover, and strategic sourcing needs. " +
	"\n\nKey guidelines:\n" +
	"- Extract product characteristics for 'product_description'\n" +
	"- Set weights based on business priorities mentioned\n" +
	"- Use filters for specific departments or categories\n" +
	"- Consider procurement context (bulk buying, supplier evaluation, etc.)\n" +
	"- Weight values should be 0 (not important) to 10 (very important)\n" +
	"- Use null for numeric limits the user did not mention and an empty list for filters the user did not mention"

// 各参数的引导语：列出正向/负向关键词，以及类目参数的合法取值。
const (
	costGuidance = "Weight for cost optimization. " +
		"Higher weight means preference for LOWER cost products. " +
		"Keywords indicating cost preference: " +
		"Positive: 'cheap', 'affordable', 'budget', 'cost-effective', 'lowest cost', 'economical', 'inexpensive' " +
		"Negative: 'expensive', 'premium', 'high-end', 'luxury', 'costly' " +
		"Neutral (0): no cost preference mentioned"

	reliabilityGuidance = "Weight for supplier reliability. " +
		"Higher weight means preference for MORE reliable suppliers/brands. " +
		"Keywords indicating reliability preference: " +
		"Positive: 'reliable', 'trustworthy', 'consistent', 'dependable', 'proven', 'established', 'quality' " +
		"Negative: 'unreliable', 'inconsistent', 'new', 'untested' " +
		"Consider return rates, delivery performance, brand reputation."

	profitMarginGuidance = "Weight for profit margin optimization. " +
		"Higher weight means preference for products with BETTER margins. " +
		"Keywords: 'profitable', 'high margin', 'best ROI', 'most profitable', 'good margins', 'high profit', 'good profit margin'"

	returnRateGuidance = "Weight for return rate optimization. " +
		"Higher weight means preference for products with LOWER return rates. " +
		"Keywords: 'low returns', 'quality', 'fewer complaints', 'reliable products', 'customer satisfaction'"

	salesGuidance = "Weight for sales performance. " +
		"Higher weight means preference for HIGH-SELLING products. " +
		"Keywords: 'popular', 'best-selling', 'high demand', 'top performers', 'trending', 'bestsellers'"

	revenueGuidance = "Weight for revenue performance. " +
		"Higher weight means preference for HIGH-REVENUE generating products. " +
		"Keywords: 'high revenue', 'top earning', 'revenue generators', 'high revenue products'"

	descriptionWeightGuidance = "Weight for similarity between the product description and product names. " +
		"Default 1.0. Raise it when the user describes the product in detail, lower it when only business metrics matter."

	productGuidance = "Product characteristics to search for. Should include the product specifications, " +
		"specific features, or use cases. " +
		"Examples: 'women shoes', 'electronics', 'athletic wear', 'denim jeans', " +
		"'winter clothing', 'accessories', 'designer brands', 'casual wear'. " +
		"If no specific product description mentioned, leave empty."

	departmentGuidance = "Department filter. Include departments that should be included in search. " +
		"Use when user specifically mentions gender or age group."

	categoryIncludeGuidance = "Product category filter. Include specific categories mentioned by user."

	categoryExcludeGuidance = "Categories that should be excluded from search."

	brandGuidance = "Brand filter. Include brands that should be included in search. " +
		"Use when user specifically mentions a brand."

	minCostGuidance         = "Minimum unit cost in dollars. Use only when the user states a lower cost bound."
	maxCostGuidance         = "Maximum unit cost in dollars, e.g. 'under $50' means 50."
	minProfitMarginGuidance = "Minimum profit margin percent (0-100), e.g. 'at least 40% margin' means 40."
	maxReturnRateGuidance   = "Maximum return rate percent (0-100), e.g. 'returns below 5%' means 5."
	minOrdersGuidance       = "Minimum number of total orders."
	minRevenueGuidance      = "Minimum total revenue in dollars."
)
