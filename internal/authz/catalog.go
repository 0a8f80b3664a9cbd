// AngelaMos | 2026
// catalog.go

package authz

// Tier is the subscription level of an organization. It drives the base
// permission set, the feature flags, and the enabled module list.
type Tier string

const (
	TierFree       Tier = "free"
	TierBasic      Tier = "basic"
	TierPro        Tier = "pro"
	TierEnterprise Tier = "enterprise"
)

// Feature flag names carried by a subscription plan.
const (
	FeatureAdvancedAnalytics = "advanced_analytics"
	FeatureAIInsights        = "ai_insights"
	FeatureAPIAccess         = "api_access"
	FeatureCustomRoles       = "custom_roles"
	FeaturePrioritySupport   = "priority_support"
	FeatureWhiteLabel        = "white_label"
)

// Module names gated per tier.
const (
	ModuleFarms         = "farms"
	ModuleCommodities   = "commodities"
	ModuleOrders        = "orders"
	ModuleInventory     = "inventory"
	ModuleBilling       = "billing"
	ModuleAnalytics     = "analytics"
	ModuleNotifications = "notifications"
	ModuleReports       = "reports"
)

var tierOrder = map[Tier]int{
	TierFree:       0,
	TierBasic:      1,
	TierPro:        2,
	TierEnterprise: 3,
}

// ValidTier reports whether t is one of the known plan tiers.
func ValidTier(t Tier) bool {
	_, ok := tierOrder[t]
	return ok
}

var tierPermissions = map[Tier][]string{
	TierFree: {
		"farms:read",
		"commodities:read",
		"orders:read",
		"orders:create",
		"inventory:read",
		"users:read",
	},
	TierBasic: {
		"farms:*",
		"commodities:*",
		"orders:*",
		"inventory:*",
		"billing:read",
		"users:read",
	},
	TierPro: {
		"farms:*",
		"commodities:*",
		"orders:*",
		"inventory:*",
		"billing:*",
		"analytics:read",
		"reports:*",
		"notifications:*",
		"users:*",
	},
	TierEnterprise: {
		"farms:*",
		"commodities:*",
		"orders:*",
		"inventory:*",
		"billing:*",
		"analytics:*",
		"reports:*",
		"notifications:*",
		"users:*",
		"roles:*",
		"api:*",
	},
}

var tierModules = map[Tier][]string{
	TierFree: {
		ModuleFarms,
		ModuleCommodities,
		ModuleOrders,
	},
	TierBasic: {
		ModuleFarms,
		ModuleCommodities,
		ModuleOrders,
		ModuleInventory,
		ModuleBilling,
	},
	TierPro: {
		ModuleFarms,
		ModuleCommodities,
		ModuleOrders,
		ModuleInventory,
		ModuleBilling,
		ModuleAnalytics,
		ModuleNotifications,
		ModuleReports,
	},
	TierEnterprise: {
		ModuleFarms,
		ModuleCommodities,
		ModuleOrders,
		ModuleInventory,
		ModuleBilling,
		ModuleAnalytics,
		ModuleNotifications,
		ModuleReports,
	},
}

var tierFeatures = map[Tier][]string{
	TierFree:  {},
	TierBasic: {FeatureAPIAccess},
	TierPro: {
		FeatureAPIAccess,
		FeatureAdvancedAnalytics,
		FeaturePrioritySupport,
	},
	TierEnterprise: {
		FeatureAPIAccess,
		FeatureAdvancedAnalytics,
		FeatureAIInsights,
		FeatureCustomRoles,
		FeaturePrioritySupport,
		FeatureWhiteLabel,
	},
}

// BasePermissions returns the permission strings granted by a plan tier.
// Unknown tiers fall back to the free tier.
func BasePermissions(t Tier) []string {
	perms, ok := tierPermissions[t]
	if !ok {
		perms = tierPermissions[TierFree]
	}

	out := make([]string, len(perms))
	copy(out, perms)
	return out
}

// TierModules returns the module names enabled for a plan tier.
func TierModules(t Tier) []string {
	mods, ok := tierModules[t]
	if !ok {
		mods = tierModules[TierFree]
	}

	out := make([]string, len(mods))
	copy(out, mods)
	return out
}

// TierFeatures returns the feature flags enabled for a plan tier.
func TierFeatures(t Tier) []string {
	feats, ok := tierFeatures[t]
	if !ok {
		feats = tierFeatures[TierFree]
	}

	out := make([]string, len(feats))
	copy(out, feats)
	return out
}
