// AngelaMos | 2026
// templates.go

package rbac

// Role templates ship in code rather than as seed rows: they version
// with the binary and applying one always copies the current
// definition into tenant-owned rows, so later template changes never
// mutate roles organizations already created.

type TemplatePermission struct {
	Resource    string
	Action      string
	Description string
}

type RoleTemplate struct {
	ID          string
	Name        string
	Description string
	Level       int
	Permissions []TemplatePermission
}

var roleTemplates = []RoleTemplate{
	{
		ID:          "farm-manager",
		Name:        "farm_manager",
		Description: "Full control of farms, inventory, and commodity listings",
		Level:       60,
		Permissions: []TemplatePermission{
			{Resource: "farms", Action: "*", Description: "Manage farms"},
			{Resource: "inventory", Action: "*", Description: "Manage inventory"},
			{Resource: "commodities", Action: "*", Description: "Manage commodity listings"},
			{Resource: "orders", Action: "read", Description: "View orders"},
			{Resource: "reports", Action: "read", Description: "View reports"},
		},
	},
	{
		ID:          "sales-agent",
		Name:        "sales_agent",
		Description: "Creates and manages orders on behalf of buyers",
		Level:       40,
		Permissions: []TemplatePermission{
			{Resource: "orders", Action: "*", Description: "Manage orders"},
			{Resource: "commodities", Action: "read", Description: "View commodity listings"},
			{Resource: "inventory", Action: "read", Description: "View inventory"},
		},
	},
	{
		ID:          "finance",
		Name:        "finance",
		Description: "Billing and financial reporting access",
		Level:       50,
		Permissions: []TemplatePermission{
			{Resource: "billing", Action: "*", Description: "Manage billing"},
			{Resource: "reports", Action: "read", Description: "View reports"},
			{Resource: "orders", Action: "read", Description: "View orders"},
		},
	},
	{
		ID:          "viewer",
		Name:        "viewer",
		Description: "Read-only access to operational data",
		Level:       10,
		Permissions: []TemplatePermission{
			{Resource: "farms", Action: "read", Description: "View farms"},
			{Resource: "commodities", Action: "read", Description: "View commodity listings"},
			{Resource: "orders", Action: "read", Description: "View orders"},
			{Resource: "inventory", Action: "read", Description: "View inventory"},
		},
	},
}

// Templates returns the shipped role templates.
func Templates() []RoleTemplate {
	out := make([]RoleTemplate, len(roleTemplates))
	copy(out, roleTemplates)
	return out
}

// TemplateByID looks up a template by its identifier.
func TemplateByID(id string) (RoleTemplate, bool) {
	for _, t := range roleTemplates {
		if t.ID == id {
			return t, true
		}
	}
	return RoleTemplate{}, false
}
