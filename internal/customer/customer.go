package customer

import "strings"

// Context is the customer record used to personalize script lines. A real
// deployment would look this up per call; this build ships a single
// hardcoded customer, matching the demo scope.
type Context struct {
	Name         string `json:"name"`
	Address      string `json:"address"`
	VehicleYear  string `json:"vehicleYear"`
	VehicleMake  string `json:"vehicleMake"`
	VehicleModel string `json:"vehicleModel"`
}

// DefaultAgentName is the name the automated agent introduces itself with.
const DefaultAgentName = "Alex"

// Default returns the sample customer used for outbound demo calls.
func Default() Context {
	return Context{
		Name:         "Juan dela Cruz",
		Address:      "123 Rizal Street, Manila",
		VehicleYear:  "2023",
		VehicleMake:  "Toyota",
		VehicleModel: "Vios",
	}
}

// FillPlaceholders substitutes the bracketed placeholders in a script line
// with customer and agent data. Only the opening greeting is filled this
// way; every later line is personalized by the decision model.
func FillPlaceholders(line string, c Context, agentName string) string {
	r := strings.NewReplacer(
		"[customer name]", c.Name,
		"[agent name]", agentName,
		"[customer address]", c.Address,
		"[vehicle year, make, model]", c.VehicleYear+" "+c.VehicleMake+" "+c.VehicleModel,
	)
	return r.Replace(line)
}
