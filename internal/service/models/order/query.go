package order

// QueryOrdersModel represents filter parameters for querying orders.
type QueryOrdersModel struct {
	IDs         []string `json:"ids,omitempty"`
	CustomerIDs []string `json:"customerIds,omitempty"`
	Limit       int      `json:"limit,omitempty"`
	Offset      int      `json:"offset,omitempty"`
}
