package httpgin

type ErrorResponse struct {
	Error string `json:"error"`
}

type RefreshResponse struct {
	Status string `json:"status"`
}
