package models

// Identity 是通過驗證的呼叫者，連線存續期間不會改變
type Identity struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}
