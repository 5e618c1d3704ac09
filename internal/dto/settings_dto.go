package dto

// BankAccount is one named account column in the month grid.
type BankAccount struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// OIDCSettings configures the external identity provider. Visible to admins
// only; the redacted view for other roles omits the whole block.
type OIDCSettings struct {
	Enabled      bool   `json:"enabled"`
	Issuer       string `json:"issuer"`
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
	RedirectURI  string `json:"redirectUri"`
	ProviderName string `json:"providerName"`
}

// Settings is the full typed application settings document, stored as one
// JSON row and mutated only through validated partial merges.
type Settings struct {
	Language             string        `json:"language"`
	CurrencyPreference   string        `json:"currencyPreference"`
	SessionDurationHours int           `json:"sessionDurationHours"`
	SortByCost           bool          `json:"sortByCost"`
	ShowYearTotals       bool          `json:"showYearTotals"`
	UpdateCheckEnabled   bool          `json:"updateCheckEnabled"`
	OIDC                 *OIDCSettings `json:"oidc,omitempty"`
	AccountsPerson1      []BankAccount `json:"accountsPerson1"`
	AccountsPerson2      []BankAccount `json:"accountsPerson2"`
}

// SettingsUpdate is a partial settings document. Pointer fields distinguish
// "absent" from "set to zero value".
type SettingsUpdate struct {
	Language             *string             `json:"language"`
	CurrencyPreference   *string             `json:"currencyPreference"`
	SessionDurationHours *float64            `json:"sessionDurationHours"`
	SortByCost           *bool               `json:"sortByCost"`
	ShowYearTotals       *bool               `json:"showYearTotals"`
	UpdateCheckEnabled   *bool               `json:"updateCheckEnabled"`
	OIDC                 *OIDCSettingsUpdate `json:"oidc"`
	AccountsPerson1      *[]BankAccount      `json:"accountsPerson1"`
	AccountsPerson2      *[]BankAccount      `json:"accountsPerson2"`
}

type OIDCSettingsUpdate struct {
	Enabled      *bool   `json:"enabled"`
	Issuer       *string `json:"issuer"`
	ClientID     *string `json:"clientId"`
	ClientSecret *string `json:"clientSecret"`
	RedirectURI  *string `json:"redirectUri"`
	ProviderName *string `json:"providerName"`
}
