package syncdb

import "encoding/json"

// RecordPage is one page of a list call. HasMore is derived from the page
// being full; the remote API does not return an explicit flag.
type RecordPage struct {
	Records []json.RawMessage `json:"records"`
	HasMore bool              `json:"hasMore"`
}

// Domain names as the remote API spells them.
const (
	DomainUsers     = "users"
	DomainCompanies = "companies"
	DomainProducts  = "products"
	DomainOrders    = "orders"
)

type RemoteUser struct {
	Id          string          `json:"id"`
	Email       string          `json:"email"`
	FirstName   string          `json:"firstName"`
	LastName    string          `json:"lastName"`
	Phone       string          `json:"phone"`
	CompanyId   string          `json:"companyId"`
	IsActive    bool            `json:"isActive"`
	Addresses   []RemoteAddress `json:"addresses"`
	LastUpdated string          `json:"lastUpdated"`
}

type RemoteCompany struct {
	Id            string          `json:"id"`
	AccountNumber string          `json:"accountNumber"`
	Name          string          `json:"name"`
	Addresses     []RemoteAddress `json:"addresses"`
	LastUpdated   string          `json:"lastUpdated"`
}

type RemoteAddress struct {
	Id        string `json:"id"`
	Label     string `json:"label"`
	Attention string `json:"attention"`
	Line1     string `json:"line1"`
	Line2     string `json:"line2"`
	City      string `json:"city"`
	State     string `json:"state"`
	Zip       string `json:"zip"`
	Country   string `json:"country"`
	Phone     string `json:"phone"`
	IsDefault bool   `json:"isDefault"`
}

// RemoteProduct carries flags and an optional pricing matrix. ProgramCode
// and SpecialProductCode are pointers so the matcher can tell an absent
// field from an explicitly empty one.
type RemoteProduct struct {
	Id                 string                  `json:"id"`
	ProductType        string                  `json:"productType"`
	Name               string                  `json:"name"`
	Description        string                  `json:"description"`
	Sku                string                  `json:"sku"`
	VariationType      string                  `json:"variationType"`
	ProgramCode        *string                 `json:"programCode"`
	SpecialProductCode *string                 `json:"specialProductCode"`
	Language           *string                 `json:"language"`
	Revision           *string                 `json:"revision"`
	Active             bool                    `json:"active"`
	Displayed          bool                    `json:"displayed"`
	Discontinued       bool                    `json:"discontinued"`
	IsDigitalDownload  bool                    `json:"isDigitalDownload"`
	FileName           string                  `json:"fileName"`
	ExpirationKind     string                  `json:"expirationKind"`
	RollingDays        int                     `json:"rollingDays"`
	DownloadLimit      int                     `json:"downloadLimit"`
	Pricing            map[string][]PriceLevel `json:"pricing"`
	LastUpdated        string                  `json:"lastUpdated"`
}

// PriceLevel is one named tier inside a currency branch of the pricing
// matrix.
type PriceLevel struct {
	LevelName string     `json:"levelName"`
	Breaks    []QtyBreak `json:"breaks"`
}

type QtyBreak struct {
	MinQuantity int    `json:"minQuantity"`
	UnitPrice   string `json:"unitPrice"`
}

type RemoteOrder struct {
	Id             string           `json:"id"`
	OrderNumber    string           `json:"orderNumber"`
	Status         string           `json:"status"`
	UserEmail      string           `json:"userEmail"`
	AccountNumber  string           `json:"accountNumber"`
	OrderDate      string           `json:"orderDate"`
	SubTotal       string           `json:"subTotal"`
	ShippingAmount string           `json:"shippingAmount"`
	HandlingAmount string           `json:"handlingAmount"`
	TaxAmount      string           `json:"taxAmount"`
	OrderTotal     string           `json:"orderTotal"`
	PaymentMethod  string           `json:"paymentMethod"`
	PONumber       string           `json:"poNumber"`
	CardAuthCode   string           `json:"cardAuthCode"`
	CardLastFour   string           `json:"cardLastFour"`
	HasShipment    bool             `json:"hasShipment"`
	IsQuote        bool             `json:"isQuote"`
	AvailableInCC  bool             `json:"availableInCustomerCenter"`
	LineItems      []RemoteLineItem `json:"lineItems"`
	LastUpdated    string           `json:"lastUpdated"`
}

type RemoteLineItem struct {
	Id                string `json:"id"`
	ProductId         string `json:"productId"`
	Sku               string `json:"sku"`
	Description       string `json:"description"`
	Quantity          int    `json:"quantity"`
	UnitPrice         string `json:"unitPrice"`
	LineTotal         string `json:"lineTotal"`
	IsDigitalDownload bool   `json:"isDigitalDownload"`
}

// TransactionPayload is the outbound order posting body.
type TransactionPayload struct {
	OrderNumber     string              `json:"orderNumber"`
	CustomerEmail   string              `json:"customerEmail"`
	AccountNumber   string              `json:"accountNumber,omitempty"`
	TransactionDate string              `json:"transactionDate"`
	SubTotal        string              `json:"subTotal"`
	TaxTotal        string              `json:"taxTotal"`
	ShippingCost    string              `json:"shippingCost"`
	HandlingCost    string              `json:"handlingCost"`
	GrandTotal      string              `json:"grandTotal"`
	BillingAddress  *RemoteAddress      `json:"billingAddress,omitempty"`
	ShippingAddress *RemoteAddress      `json:"shippingAddress,omitempty"`
	PaymentMethod   string              `json:"paymentMethod"`
	PONumber        string              `json:"poNumber,omitempty"`
	CardAuthCode    string              `json:"cardAuthCode,omitempty"`
	CardLastFour    string              `json:"cardLastFour,omitempty"`
	Items           []TransactionItem   `json:"items"`
	Customs         *CustomsDeclaration `json:"customs,omitempty"`
}

type TransactionItem struct {
	Sku       string `json:"sku"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unitPrice"`
	TaxAmount string `json:"taxAmount"`
}

// CustomsDeclaration accompanies international shipments.
type CustomsDeclaration struct {
	ContentsType    string `json:"contentsType"`
	DeclaredValue   string `json:"declaredValue"`
	CountryOfOrigin string `json:"countryOfOrigin"`
}

type TransactionResult struct {
	TransactionId   string `json:"transactionId"`
	ResponseCode    int    `json:"responseCode"`
	ResponseMessage string `json:"responseMessage"`
}
