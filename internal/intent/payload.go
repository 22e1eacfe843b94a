package intent

import "encoding/json"

// The feed delivers transaction notifications in one of two shapes:
//
//	{ "method": "transactionNotification", "params": { "result": {...} } }
//	{ "result": {...} }
//
// Only the substructure the inference needs is projected into typed fields;
// everything else in the payload is ignored.

type notification struct {
	Params *notificationParams `json:"params"`
	Result *txResult           `json:"result"`
}

type notificationParams struct {
	Result *txResult `json:"result"`
}

type txResult struct {
	Signature string  `json:"signature"`
	Meta      *txMeta `json:"meta"`
}

type txMeta struct {
	PreTokenBalances  []tokenBalance `json:"preTokenBalances"`
	PostTokenBalances []tokenBalance `json:"postTokenBalances"`
}

type tokenBalance struct {
	Mint          string        `json:"mint"`
	UITokenAmount uiTokenAmount `json:"uiTokenAmount"`
}

type uiTokenAmount struct {
	UIAmount *float64 `json:"uiAmount"`
}

// parseNotification projects the raw payload onto the known shapes.
// Returns nil when neither shape matches; absence is not an error.
func parseNotification(raw []byte) *txResult {
	var n notification
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil
	}
	if n.Params != nil && n.Params.Result != nil {
		return n.Params.Result
	}
	return n.Result
}
