// Package identity wraps the external identity provider (AWS Cognito).
// All credential verification is delegated there; the application only
// stores the provider's stable subject id per user.
package identity

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
)

// Tokens holds the credentials issued by the provider on login.
type Tokens struct {
	// AccessToken is the bearer credential presented on API requests.
	AccessToken string `json:"accessToken"`
	// IDToken carries the user's identity claims.
	IDToken string `json:"idToken"`
	// RefreshToken renews the session without re-authentication.
	RefreshToken string `json:"refreshToken"`
}

// Provider is a long-lived handle on the identity provider, constructed
// once in main and injected into the services that need it.
type Provider struct {
	client   *cognitoidentityprovider.Client
	clientID string
}

// NewProvider builds a Provider for the given region and app client id.
func NewProvider(ctx context.Context, region, clientID string) (*Provider, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &Provider{
		client:   cognitoidentityprovider.NewFromConfig(cfg),
		clientID: clientID,
	}, nil
}

// SignUp registers a new user with the provider and returns the subject id
// assigned to them.
func (p *Provider) SignUp(ctx context.Context, email, password, name string) (string, error) {
	out, err := p.client.SignUp(ctx, &cognitoidentityprovider.SignUpInput{
		ClientId: aws.String(p.clientID),
		Username: aws.String(email),
		Password: aws.String(password),
		UserAttributes: []types.AttributeType{
			{Name: aws.String("email"), Value: aws.String(email)},
			{Name: aws.String("name"), Value: aws.String(name)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("sign up: %w", err)
	}
	return aws.ToString(out.UserSub), nil
}

// Authenticate verifies the email/password pair and returns the issued tokens.
func (p *Provider) Authenticate(ctx context.Context, email, password string) (*Tokens, error) {
	out, err := p.client.InitiateAuth(ctx, &cognitoidentityprovider.InitiateAuthInput{
		AuthFlow: types.AuthFlowTypeUserPasswordAuth,
		ClientId: aws.String(p.clientID),
		AuthParameters: map[string]string{
			"USERNAME": email,
			"PASSWORD": password,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("initiate auth: %w", err)
	}
	result := out.AuthenticationResult
	if result == nil {
		return nil, fmt.Errorf("initiate auth: no authentication result")
	}
	return &Tokens{
		AccessToken:  aws.ToString(result.AccessToken),
		IDToken:      aws.ToString(result.IdToken),
		RefreshToken: aws.ToString(result.RefreshToken),
	}, nil
}

// Subject resolves a bearer access token to the provider's subject id.
// An invalid or expired token yields an error.
func (p *Provider) Subject(ctx context.Context, accessToken string) (string, error) {
	out, err := p.client.GetUser(ctx, &cognitoidentityprovider.GetUserInput{
		AccessToken: aws.String(accessToken),
	})
	if err != nil {
		return "", fmt.Errorf("get user: %w", err)
	}
	for _, attr := range out.UserAttributes {
		if aws.ToString(attr.Name) == "sub" {
			return aws.ToString(attr.Value), nil
		}
	}
	return "", fmt.Errorf("get user: no subject attribute")
}
