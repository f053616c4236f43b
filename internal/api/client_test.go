package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"mylaundry/internal/order"
	"mylaundry/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// staticTokens is a TokenSource with a fixed token, or none.
type staticTokens struct {
	token string
}

func (s staticTokens) CurrentToken() (string, error) {
	if s.token == "" {
		return "", session.ErrNotAuthenticated
	}
	return s.token, nil
}

func newTestClient(t *testing.T, handler http.Handler, token string) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 5*time.Second, staticTokens{token: token})
}

func TestLogin(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/auth/login", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NotEmpty(t, r.Header.Get("X-Request-Id"))

		var creds map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		assert.Equal(t, "budi@example.com", creds["email"])
		assert.Equal(t, "rahasia", creds["password"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"token":"tok-123"}}`))
	}), "")

	token, err := c.Login(context.Background(), "budi@example.com", "rahasia")
	require.NoError(t, err)
	assert.Equal(t, "tok-123", token)
}

func TestLoginRejectedSurfacesServerMessage(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"Invalid credentials"}`))
	}), "")

	_, err := c.Login(context.Background(), "x@y.z", "bad")
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "Invalid credentials", apiErr.Error())
}

func TestRejectionWithoutMessageFallsBack(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream exploded"))
	}), "tok")

	_, err := c.ListPrices(context.Background())
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "request failed with status 502", apiErr.Error())
}

func TestListPricesSendsBearerToken(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-abc", r.Header.Get("Authorization"))
		w.Write([]byte(`{"data":[
			{"_id":"p1","packageName":"Cuci Kering","price":5000},
			{"_id":"p2","packageName":"Cuci Setrika","price":7000}
		]}`))
	}), "tok-abc")

	pkgs, err := c.ListPrices(context.Background())
	require.NoError(t, err)
	require.Len(t, pkgs, 2)
	assert.Equal(t, "Cuci Kering", pkgs[0].Name)
	assert.Equal(t, 5000.0, pkgs[0].Price)
}

func TestAuthenticatedCallWithoutSession(t *testing.T) {
	called := false
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}), "")

	_, err := c.ListPrices(context.Background())
	assert.ErrorIs(t, err, session.ErrNotAuthenticated)
	assert.False(t, called, "no request should leave the client without a token")
}

func TestCreateOrder(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/orders", r.URL.Path)

		var got order.Payload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, "Budi", got.CustomerName)
		assert.Equal(t, 15000.0, got.TotalPrice)
		assert.Equal(t, []string{"p1"}, got.Packages)

		w.Write([]byte(`{"data":{
			"_id":"o1",
			"customerName":"Budi",
			"customerPhone":"0811",
			"weight":3,
			"totalPrice":15000,
			"completionDate":"2024-06-01T00:00:00.000Z",
			"receivedDate":"2024-05-30T00:00:00.000Z",
			"createdAt":"2024-05-30T08:00:00.000Z",
			"packages":[{"_id":"p1","packageName":"Cuci Kering","price":5000}]
		}}`))
	}), "tok")

	created, err := c.CreateOrder(context.Background(), order.Payload{
		CustomerName:   "Budi",
		CustomerPhone:  "0811",
		Weight:         3,
		CompletionDate: "2024-06-01",
		ReceivedDate:   "2024-05-30",
		TotalPrice:     15000,
		Packages:       []string{"p1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "o1", created.ID)
	assert.Equal(t, 15000.0, created.TotalPrice)
	require.Len(t, created.Packages, 1)
	require.NotNil(t, created.ReceivedDate)
}

func TestListOrdersToleratesMissingReceivedDate(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[{
			"_id":"o1",
			"customerName":"Sari",
			"weight":2,
			"totalPrice":14000,
			"completionDate":"2024-06-02T00:00:00.000Z",
			"createdAt":"2024-06-01T08:00:00.000Z",
			"packages":[]
		}]}`))
	}), "tok")

	orders, err := c.ListOrders(context.Background())
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Nil(t, orders[0].ReceivedDate)
}

func TestDeletePrice(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/prices/p1", r.URL.Path)
		w.Write([]byte(`{"message":"deleted"}`))
	}), "tok")

	assert.NoError(t, c.DeletePrice(context.Background(), "p1"))
}

func TestConnectivityErrorIsNotAnAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	c := NewClient(srv.URL, time.Second, staticTokens{token: "tok"})
	srv.Close()

	_, err := c.ListPrices(context.Background())
	require.Error(t, err)
	var apiErr *Error
	assert.False(t, errors.As(err, &apiErr), "transport failures are not remote rejections")
}
