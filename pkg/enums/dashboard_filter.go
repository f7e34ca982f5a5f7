package enums

// DashboardFilter restricts which sessions the dashboard groups per patient.
type DashboardFilter string

const (
	DashboardFilterAll     DashboardFilter = "all"
	DashboardFilterPending DashboardFilter = "pending"
	DashboardFilterPaid    DashboardFilter = "paid"
)

// String implements fmt.Stringer.
func (f DashboardFilter) String() string {
	return string(f)
}

// ParseDashboardFilter maps raw input onto a filter token. Anything that is
// not exactly "pending" or "paid" falls back to "all".
func ParseDashboardFilter(value string) DashboardFilter {
	switch DashboardFilter(value) {
	case DashboardFilterPending:
		return DashboardFilterPending
	case DashboardFilterPaid:
		return DashboardFilterPaid
	default:
		return DashboardFilterAll
	}
}
