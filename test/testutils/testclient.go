package testutils

import (
	"bytes"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/golang-jwt/jwt/v5"
	. "github.com/onsi/gomega"
)

// TestClient talks to a running platereg server the way an operator would.
type TestClient struct {
	baseURL    url.URL
	authToken  string
	signingKey rsa.PrivateKey
}

func NewTestClient(baseURL url.URL, signingKey rsa.PrivateKey) *TestClient {
	return &TestClient{baseURL: baseURL, signingKey: signingKey}
}

func (client *TestClient) endpoint(path ...string) *url.URL {
	return client.baseURL.JoinPath(path...)
}

// Endpoint is for requests that bypass the client's auth handling.
func (client *TestClient) Endpoint(path ...string) *url.URL {
	return client.endpoint(path...)
}

func (client *TestClient) authenticateWithAuthToken(signingMethod jwt.SigningMethod, key any, claims jwt.Claims) {
	authToken := jwt.NewWithClaims(signingMethod, claims)
	var err error
	client.authToken, err = authToken.SignedString(key)
	Expect(err).NotTo(HaveOccurred())
}

func (client *TestClient) AuthenticateWithUnsignedJWT() {
	client.authenticateWithAuthToken(jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, jwt.RegisteredClaims{
		Subject: GenerateRandomUUID().String(),
	})
}

func (client *TestClient) AuthenticateAs(subject string) {
	client.authenticateWithAuthToken(jwt.SigningMethodRS256, &client.signingKey, jwt.RegisteredClaims{
		Subject: subject,
	})
}

func (client *TestClient) Unauthenticate() {
	client.authToken = ""
}

func (client *TestClient) sendRequestWithDefaultHeaders(method string, endpoint *url.URL, body any) (res *http.Response) {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		Expect(err).NotTo(HaveOccurred())
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequest(method, endpoint.String(), reader)
	Expect(err).NotTo(HaveOccurred())
	if client.authToken != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", client.authToken))
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err = http.DefaultClient.Do(req)
	Expect(err).NotTo(HaveOccurred())
	return
}

func (client *TestClient) IngestVehicles(plates []string) (response *http.Response) {
	return client.sendRequestWithDefaultHeaders(http.MethodPost, client.endpoint("/vehicles"), plates)
}

func (client *TestClient) GetVehicle(plate string) (response *http.Response) {
	return client.sendRequestWithDefaultHeaders(http.MethodGet, client.endpoint("/vehicles", plate), nil)
}

// Get follows a link returned by the server, e.g. a pagination link.
func (client *TestClient) Get(link string) (response *http.Response) {
	uri, err := url.Parse(link)
	Expect(err).NotTo(HaveOccurred())
	endpoint := client.baseURL.JoinPath(uri.Path)
	endpoint.RawQuery = uri.RawQuery
	return client.sendRequestWithDefaultHeaders(http.MethodGet, endpoint, nil)
}

type ListVehiclesOptions struct {
	Limit  int
	Offset int
}

func (client *TestClient) ListVehicles(options ListVehiclesOptions) (response *http.Response) {
	endpoint := client.endpoint("/vehicles")
	query := endpoint.Query()
	// A zero limit keeps the options struct usable as-is in tests.
	if options.Limit == 0 {
		options.Limit = 10
	}
	query.Add("page[limit]", fmt.Sprint(options.Limit))
	if options.Offset != 0 {
		query.Add("page[offset]", fmt.Sprint(options.Offset))
	}
	endpoint.RawQuery = query.Encode()
	return client.sendRequestWithDefaultHeaders(http.MethodGet, endpoint, nil)
}
