package bankfeed

import (
	"context"
	"fmt"
	"time"

	"github.com/plaid/plaid-go/v20/plaid"
)

// sandboxInstitutionID is Plaid's First Platypus Bank test institution.
const sandboxInstitutionID = "ins_109508"

// Config holds the settings needed to construct a Client.
type Config struct {
	// Environment selects the aggregator environment ("sandbox" or "production").
	Environment string
	// ClientID is the aggregator API client id.
	ClientID string
	// Secret is the aggregator API secret.
	Secret string
	// ClientName is shown to the user in the account-linking flow.
	ClientName string
}

// Client is a long-lived handle on the bank aggregator API. Construct it
// once in main and inject it wherever feed access is needed.
type Client struct {
	api        *plaid.APIClient
	clientName string
	sandbox    bool
}

// NewClient builds a Client for the configured aggregator environment.
func NewClient(cfg Config) *Client {
	configuration := plaid.NewConfiguration()
	configuration.AddDefaultHeader("PLAID-CLIENT-ID", cfg.ClientID)
	configuration.AddDefaultHeader("PLAID-SECRET", cfg.Secret)

	env := plaid.Sandbox
	if cfg.Environment == "production" {
		env = plaid.Production
	}
	configuration.UseEnvironment(env)

	return &Client{
		api:        plaid.NewAPIClient(configuration),
		clientName: cfg.ClientName,
		sandbox:    env == plaid.Sandbox,
	}
}

// Sandbox reports whether the client talks to the sandbox environment.
func (c *Client) Sandbox() bool {
	return c.sandbox
}

// SyncPage requests a single feed page for the given credential and cursor.
// A nil cursor starts a fresh feed session from the beginning.
func (c *Client) SyncPage(ctx context.Context, accessToken string, cursor *string) (*SyncPage, error) {
	req := plaid.NewTransactionsSyncRequest(accessToken)
	if cursor != nil {
		req.SetCursor(*cursor)
	}

	resp, _, err := c.api.PlaidApi.TransactionsSync(ctx).TransactionsSyncRequest(*req).Execute()
	if err != nil {
		return nil, fmt.Errorf("transactions sync: %w", err)
	}

	page := &SyncPage{
		HasMore:    resp.GetHasMore(),
		NextCursor: resp.GetNextCursor(),
	}
	for _, tx := range resp.GetAdded() {
		page.Added = append(page.Added, fromPlaid(tx))
	}
	for _, tx := range resp.GetModified() {
		page.Modified = append(page.Modified, fromPlaid(tx))
	}
	for _, rm := range resp.GetRemoved() {
		page.Removed = append(page.Removed, rm.GetTransactionId())
	}
	return page, nil
}

// Pages returns a Pager over the feed for the given credential, resuming
// from cursor (nil starts from the beginning).
func (c *Client) Pages(accessToken string, cursor *string) *Pager {
	return NewPager(c, accessToken, cursor)
}

// CreateLinkToken creates a link token for the account-linking flow.
func (c *Client) CreateLinkToken(ctx context.Context, userID string) (string, error) {
	user := plaid.LinkTokenCreateRequestUser{ClientUserId: userID}
	req := plaid.NewLinkTokenCreateRequest(
		c.clientName,
		"en",
		[]plaid.CountryCode{plaid.COUNTRYCODE_US},
		user,
	)
	req.SetProducts([]plaid.Products{plaid.PRODUCTS_TRANSACTIONS})

	resp, _, err := c.api.PlaidApi.LinkTokenCreate(ctx).LinkTokenCreateRequest(*req).Execute()
	if err != nil {
		return "", fmt.Errorf("link token create: %w", err)
	}
	return resp.GetLinkToken(), nil
}

// CreateSandboxPublicToken creates a public token against the sandbox test
// institution. Only meaningful for sandbox clients.
func (c *Client) CreateSandboxPublicToken(ctx context.Context) (string, error) {
	req := plaid.NewSandboxPublicTokenCreateRequest(
		sandboxInstitutionID,
		[]plaid.Products{plaid.PRODUCTS_TRANSACTIONS},
	)

	resp, _, err := c.api.PlaidApi.SandboxPublicTokenCreate(ctx).SandboxPublicTokenCreateRequest(*req).Execute()
	if err != nil {
		return "", fmt.Errorf("sandbox public token create: %w", err)
	}
	return resp.GetPublicToken(), nil
}

// ExchangePublicToken exchanges a public token from the linking flow for a
// permanent access token and item id.
func (c *Client) ExchangePublicToken(ctx context.Context, publicToken string) (accessToken, itemID string, err error) {
	req := plaid.NewItemPublicTokenExchangeRequest(publicToken)

	resp, _, err := c.api.PlaidApi.ItemPublicTokenExchange(ctx).ItemPublicTokenExchangeRequest(*req).Execute()
	if err != nil {
		return "", "", fmt.Errorf("public token exchange: %w", err)
	}
	return resp.GetAccessToken(), resp.GetItemId(), nil
}

// fromPlaid converts an aggregator transaction into the feed record the
// rest of the system consumes.
func fromPlaid(tx plaid.Transaction) FeedTransaction {
	date, _ := time.Parse("2006-01-02", tx.GetDate())

	pfc := tx.GetPersonalFinanceCategory()
	legacy := ""
	if cats := tx.GetCategory(); len(cats) > 0 {
		legacy = cats[0]
	}

	return FeedTransaction{
		ID:               tx.GetTransactionId(),
		Amount:           tx.GetAmount(),
		Date:             date,
		Description:      tx.GetName(),
		MerchantName:     tx.GetMerchantName(),
		DetailedCategory: pfc.GetPrimary(),
		LegacyCategory:   legacy,
		Pending:          tx.GetPending(),
	}
}
