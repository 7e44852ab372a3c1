// Package correlation maps relationships between instruments so the
// analysis prompt can factor in peer earnings, peer price moves, and
// macro themes the target is sensitive to.
package correlation

import "sort"

// Relation is a correlated instrument and the nature of the link.
type Relation struct {
	Symbol       string
	Relationship string // competitor, supplier, customer, sector_peer, index_component
	Weight       float64
}

// Curated high-impact relationships that sector classification alone
// would miss (e.g. NVDA as supplier to the hyperscalers).
var correlationMap = map[string][]Relation{
	"AAPL": {
		{"MSFT", "competitor", 0.6},
		{"GOOGL", "competitor", 0.5},
		{"AMZN", "competitor", 0.4},
		{"META", "sector_peer", 0.4},
		{"QCOM", "supplier", 0.5},
		{"TSM", "supplier", 0.6},
	},
	"MSFT": {
		{"GOOGL", "competitor", 0.7},
		{"AMZN", "competitor", 0.6},
		{"META", "sector_peer", 0.5},
		{"AAPL", "competitor", 0.5},
		{"CRM", "competitor", 0.5},
		{"NVDA", "supplier", 0.5},
	},
	"GOOGL": {
		{"META", "competitor", 0.7},
		{"MSFT", "competitor", 0.6},
		{"AMZN", "competitor", 0.5},
		{"SNAP", "competitor", 0.4},
		{"NVDA", "supplier", 0.5},
	},
	"AMZN": {
		{"MSFT", "competitor", 0.6},
		{"GOOGL", "competitor", 0.5},
		{"WMT", "competitor", 0.5},
		{"SHOP", "sector_peer", 0.4},
	},
	"META": {
		{"GOOGL", "competitor", 0.7},
		{"SNAP", "competitor", 0.6},
		{"PINS", "competitor", 0.4},
		{"MSFT", "sector_peer", 0.4},
		{"NVDA", "supplier", 0.5},
	},
	"NVDA": {
		{"AMD", "competitor", 0.8},
		{"INTC", "competitor", 0.5},
		{"TSM", "supplier", 0.7},
		{"MSFT", "customer", 0.6},
		{"GOOGL", "customer", 0.5},
		{"META", "customer", 0.5},
		{"AMZN", "customer", 0.5},
		{"AVGO", "competitor", 0.5},
	},
	"TSLA": {
		{"RIVN", "competitor", 0.5},
		{"F", "competitor", 0.4},
		{"GM", "competitor", 0.4},
		{"NIO", "competitor", 0.4},
		{"NVDA", "supplier", 0.4},
	},
	"AMD": {
		{"NVDA", "competitor", 0.8},
		{"INTC", "competitor", 0.7},
		{"TSM", "supplier", 0.6},
		{"AVGO", "sector_peer", 0.4},
	},
	"SPY": {
		{"QQQ", "sector_peer", 0.8},
		{"DIA", "sector_peer", 0.7},
		{"IWM", "sector_peer", 0.6},
	},
	"QQQ": {
		{"SPY", "sector_peer", 0.7},
		{"AAPL", "index_component", 0.6},
		{"MSFT", "index_component", 0.6},
		{"NVDA", "index_component", 0.6},
	},
	"RELIANCE.NS": {
		{"TCS.NS", "sector_peer", 0.3},
		{"HDFCBANK.NS", "sector_peer", 0.4},
		{"ITC.NS", "sector_peer", 0.3},
	},
	"TCS.NS": {
		{"INFY.NS", "competitor", 0.8},
		{"WIPRO.NS", "competitor", 0.6},
		{"HCLTECH.NS", "competitor", 0.6},
		{"TECHM.NS", "competitor", 0.5},
	},
	"INFY.NS": {
		{"TCS.NS", "competitor", 0.8},
		{"WIPRO.NS", "competitor", 0.6},
		{"HCLTECH.NS", "competitor", 0.6},
		{"TECHM.NS", "competitor", 0.5},
	},
	"HDFCBANK.NS": {
		{"ICICIBANK.NS", "competitor", 0.7},
		{"SBIN.NS", "competitor", 0.6},
		{"KOTAKBANK.NS", "competitor", 0.6},
		{"AXISBANK.NS", "competitor", 0.5},
	},
	"TATASTEEL.NS": {
		{"JSWSTEEL.NS", "competitor", 0.7},
		{"SAIL.NS", "competitor", 0.6},
		{"HINDALCO.NS", "sector_peer", 0.5},
	},
}

// Macro themes each instrument is sensitive to. Tags, not labels; see
// macroThemeLabels for the prompt rendering.
var macroSensitivities = map[string][]string{
	"AAPL":  {"tariffs_china", "antitrust_big_tech", "consumer_spending", "usd_strength"},
	"MSFT":  {"ai_industry", "antitrust_big_tech", "cloud_spending", "enterprise_it_budgets"},
	"GOOGL": {"ai_industry", "antitrust_big_tech", "digital_ad_spending", "ai_regulation"},
	"AMZN":  {"tariffs_china", "consumer_spending", "cloud_spending", "labor_regulation"},
	"META":  {"ai_industry", "digital_ad_spending", "ai_regulation", "antitrust_big_tech"},
	"NVDA":  {"ai_industry", "tariffs_china", "chip_export_controls", "data_center_spending"},
	"AMD":   {"ai_industry", "tariffs_china", "chip_export_controls", "data_center_spending"},
	"TSLA":  {"ev_policy", "tariffs_china", "interest_rates", "autonomous_driving_regulation"},
	"INTC":  {"chip_export_controls", "us_chips_act", "tariffs_china"},
	"TSM":   {"chip_export_controls", "taiwan_geopolitics", "tariffs_china"},

	"SPY": {"interest_rates", "fed_policy", "recession_risk", "geopolitics"},
	"QQQ": {"interest_rates", "ai_industry", "antitrust_big_tech"},

	"TCS.NS":     {"us_visa_h1b", "usd_inr_currency", "enterprise_it_budgets", "us_recession_risk"},
	"INFY.NS":    {"us_visa_h1b", "usd_inr_currency", "enterprise_it_budgets", "us_recession_risk"},
	"WIPRO.NS":   {"us_visa_h1b", "usd_inr_currency", "enterprise_it_budgets"},
	"HCLTECH.NS": {"us_visa_h1b", "usd_inr_currency", "enterprise_it_budgets"},
	"TECHM.NS":   {"us_visa_h1b", "usd_inr_currency", "enterprise_it_budgets"},

	"HDFCBANK.NS":  {"rbi_interest_rates", "india_gdp", "india_inflation", "npa_asset_quality"},
	"ICICIBANK.NS": {"rbi_interest_rates", "india_gdp", "india_inflation", "npa_asset_quality"},
	"SBIN.NS":      {"rbi_interest_rates", "india_gdp", "india_government_policy", "npa_asset_quality"},
	"KOTAKBANK.NS": {"rbi_interest_rates", "india_gdp", "india_inflation"},
	"AXISBANK.NS":  {"rbi_interest_rates", "india_gdp", "india_inflation"},

	"RELIANCE.NS":  {"oil_prices", "india_telecom_policy", "india_retail", "india_gdp"},
	"TATASTEEL.NS": {"tariffs_steel", "china_steel_dumping", "india_infrastructure_spending"},
	"JSWSTEEL.NS":  {"tariffs_steel", "china_steel_dumping", "india_infrastructure_spending"},
	"HINDALCO.NS":  {"tariffs_aluminum", "china_commodity_prices", "india_infrastructure_spending"},
	"ITC.NS":       {"india_tobacco_regulation", "india_fmcg", "india_gst_policy"},
}

var macroThemeLabels = map[string]string{
	"tariffs_china":                   "US-China tariffs and trade war",
	"tariffs_steel":                   "Steel import tariffs / anti-dumping duties",
	"tariffs_aluminum":                "Aluminum tariffs and commodity trade policy",
	"antitrust_big_tech":              "Big Tech antitrust regulation and lawsuits",
	"ai_industry":                     "AI industry developments (new models, tools, partnerships)",
	"ai_regulation":                   "AI regulation and safety legislation",
	"chip_export_controls":            "Semiconductor export controls (US-China)",
	"us_chips_act":                    "US CHIPS Act funding and domestic semiconductor policy",
	"taiwan_geopolitics":              "Taiwan geopolitical tensions",
	"interest_rates":                  "Federal Reserve interest rate decisions",
	"fed_policy":                      "Federal Reserve monetary policy and guidance",
	"rbi_interest_rates":              "RBI interest rate decisions",
	"consumer_spending":               "US consumer spending and retail data",
	"digital_ad_spending":             "Digital advertising market trends",
	"cloud_spending":                  "Cloud infrastructure and enterprise spending",
	"data_center_spending":            "Data center and AI infrastructure capex",
	"enterprise_it_budgets":           "Enterprise IT spending and outsourcing trends",
	"ev_policy":                       "EV subsidies, regulation, and adoption trends",
	"autonomous_driving_regulation":   "Self-driving car regulation and approvals",
	"usd_strength":                    "US dollar strength and forex impact",
	"usd_inr_currency":                "USD/INR exchange rate movements",
	"us_visa_h1b":                     "US H-1B visa policy changes (affects Indian IT outsourcing)",
	"us_recession_risk":               "US economic slowdown / recession indicators",
	"recession_risk":                  "Global recession risk indicators",
	"geopolitics":                     "Major geopolitical events (wars, sanctions, elections)",
	"oil_prices":                      "Crude oil price movements",
	"china_steel_dumping":             "Chinese steel overproduction and dumping",
	"china_commodity_prices":          "Chinese commodity demand and pricing",
	"india_gdp":                       "India GDP growth and economic data",
	"india_inflation":                 "India CPI/WPI inflation data",
	"india_government_policy":         "Indian government fiscal/policy decisions",
	"india_infrastructure_spending":   "India infrastructure and capex spending",
	"india_telecom_policy":            "India telecom spectrum and regulation",
	"india_retail":                    "India retail and e-commerce market",
	"india_tobacco_regulation":        "India tobacco taxation and regulation",
	"india_fmcg":                      "India FMCG and consumer staples market",
	"india_gst_policy":                "India GST rate changes",
	"npa_asset_quality":               "Bank NPA and asset quality concerns",
	"labor_regulation":                "Labor and employment regulation changes",
}

var reverseRelationship = map[string]string{
	"supplier": "customer",
	"customer": "supplier",
}

// SectorLookup resolves an instrument to its sector and industry for
// peer discovery when the curated map has no entry. ok is false when the
// classification is unknown.
type SectorLookup interface {
	Sector(symbol string) (sector, industry string, ok bool)
}

// Related returns the correlated peers of a symbol, in priority order:
// the curated map, then reverse lookup at dampened weight, then
// sector/industry matching against the known universe.
func (a *Analyzer) Related(symbol string) []Relation {
	if rels, ok := correlationMap[symbol]; ok {
		out := make([]Relation, len(rels))
		copy(out, rels)
		return out
	}

	var reversed []Relation
	for parent, rels := range correlationMap {
		for _, rel := range rels {
			if rel.Symbol != symbol {
				continue
			}
			kind := rel.Relationship
			if rev, ok := reverseRelationship[kind]; ok {
				kind = rev
			}
			reversed = append(reversed, Relation{
				Symbol:       parent,
				Relationship: kind,
				Weight:       rel.Weight * 0.8,
			})
		}
	}
	if len(reversed) > 0 {
		sort.Slice(reversed, func(i, j int) bool {
			if reversed[i].Weight != reversed[j].Weight {
				return reversed[i].Weight > reversed[j].Weight
			}
			return reversed[i].Symbol < reversed[j].Symbol
		})
		return reversed
	}

	return a.sectorPeers(symbol)
}

// sectorPeers matches the symbol's sector/industry against every symbol
// the curated map knows about plus the configured universe. Same
// industry reads as competitor, same sector only as a weaker peer.
func (a *Analyzer) sectorPeers(symbol string) []Relation {
	if a.sectors == nil {
		return nil
	}
	sector, industry, ok := a.sectors.Sector(symbol)
	if !ok || sector == "" {
		return nil
	}

	candidates := make(map[string]struct{})
	for parent, rels := range correlationMap {
		candidates[parent] = struct{}{}
		for _, rel := range rels {
			candidates[rel.Symbol] = struct{}{}
		}
	}
	for _, s := range a.universe {
		candidates[s] = struct{}{}
	}
	delete(candidates, symbol)

	var peers []Relation
	for cand := range candidates {
		cs, ci, ok := a.sectors.Sector(cand)
		if !ok || cs != sector {
			continue
		}
		if industry != "" && ci == industry {
			peers = append(peers, Relation{Symbol: cand, Relationship: "competitor", Weight: 0.6})
		} else {
			peers = append(peers, Relation{Symbol: cand, Relationship: "sector_peer", Weight: 0.3})
		}
	}
	sort.Slice(peers, func(i, j int) bool {
		if peers[i].Weight != peers[j].Weight {
			return peers[i].Weight > peers[j].Weight
		}
		return peers[i].Symbol < peers[j].Symbol
	})
	if len(peers) > a.opts.MaxPeers {
		peers = peers[:a.opts.MaxPeers]
	}
	return peers
}

// MacroThemes returns the human-readable macro themes the symbol is
// sensitive to, for inclusion in the analysis prompt.
func MacroThemes(symbol string) []string {
	tags := macroSensitivities[symbol]
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if label, ok := macroThemeLabels[t]; ok {
			out = append(out, label)
		} else {
			out = append(out, t)
		}
	}
	return out
}
