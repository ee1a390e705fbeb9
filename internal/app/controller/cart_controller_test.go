package controller_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/dyoon/shopcart-backend/config"
	"github.com/dyoon/shopcart-backend/internal/app/cache"
	"github.com/dyoon/shopcart-backend/internal/app/controller"
	"github.com/dyoon/shopcart-backend/internal/app/model"
	"github.com/dyoon/shopcart-backend/internal/app/repository"
	"github.com/dyoon/shopcart-backend/internal/app/service"
	"github.com/dyoon/shopcart-backend/internal/db"
	"github.com/dyoon/shopcart-backend/internal/middleware"
	"github.com/dyoon/shopcart-backend/internal/router"
	"github.com/dyoon/shopcart-backend/pkg/catalog"
)

const testJWTSecret = "test-secret"

type productCatalogStub struct {
	products map[string]*catalog.ProductInfo
}

func (s *productCatalogStub) GetProduct(_ context.Context, productID string) (*catalog.ProductInfo, error) {
	return s.products[productID], nil
}

func (s *productCatalogStub) CheckInventory(_ context.Context, _ string, _ int) (*catalog.InventoryStatus, error) {
	return &catalog.InventoryStatus{IsAvailable: true}, nil
}

func (s *productCatalogStub) ReserveInventory(_ context.Context, _ string, _ int) (bool, error) {
	return true, nil
}

// envelope mirrors both the success and error response shapes.
type envelope struct {
	Success bool            `json:"success"`
	Cart    json.RawMessage `json:"cart"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

type cartPayload struct {
	ID          string  `json:"id"`
	UserID      *string `json:"user_id"`
	SessionID   *string `json:"session_id"`
	TotalItems  int     `json:"total_items"`
	TotalAmount float64 `json:"total_amount"`
	Items       []struct {
		ProductID string  `json:"product_id"`
		Quantity  int     `json:"quantity"`
		UnitPrice float64 `json:"unit_price"`
		Subtotal  float64 `json:"subtotal"`
	} `json:"items"`
}

func setupAPI(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()

	database, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(database)
	})

	require.NoError(t, database.Create(&model.Inventory{ProductID: "p1", Stock: 100}).Error)
	require.NoError(t, database.Create(&model.Inventory{ProductID: "p2", Stock: 3}).Error)

	cartRepo := repository.NewCartRepository(database)
	inventory := service.NewInventoryService(database, 15*time.Minute)
	cartService := service.NewCartService(cartRepo, cache.NewNoop(), inventory, &productCatalogStub{
		products: map[string]*catalog.ProductInfo{
			"p1": {ID: "p1", Name: "Drip Kettle", Price: 100},
			"p2": {ID: "p2", Name: "Hand Mill", Price: 50},
		},
	})

	cfg := &config.Config{
		Server: config.ServerConfig{GinMode: gin.TestMode},
		CORS:   config.CORSConfig{AllowedOrigins: []string{"*"}},
		JWT:    config.JWTConfig{Secret: testJWTSecret},
	}

	engine := router.NewRouter(
		controller.NewCartController(cartService),
		middleware.NewIdentityMiddleware(cfg.JWT.Secret),
		cfg,
	).Setup()
	return engine, database
}

func doJSON(t *testing.T, engine *gin.Engine, method, path string, body interface{}, headers map[string]string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	recorder := httptest.NewRecorder()
	engine.ServeHTTP(recorder, req)

	var resp envelope
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	return recorder, resp
}

func decodeCart(t *testing.T, raw json.RawMessage) cartPayload {
	t.Helper()
	var cart cartPayload
	require.NoError(t, json.Unmarshal(raw, &cart))
	return cart
}

func sessionHeaders(sessionID string) map[string]string {
	return map[string]string{"X-Session-ID": sessionID}
}

func bearerHeaders(t *testing.T, userID string) map[string]string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return map[string]string{"Authorization": "Bearer " + token}
}

func TestAPI_Health(t *testing.T) {
	engine, _ := setupAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	recorder := httptest.NewRecorder()
	engine.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "healthy")
}

func TestAPI_GetCart_Empty(t *testing.T) {
	engine, _ := setupAPI(t)

	recorder, resp := doJSON(t, engine, http.MethodGet, "/api/v1/cart", nil, sessionHeaders("sess-1"))

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.True(t, resp.Success)
	assert.Equal(t, "null", string(resp.Cart))
}

func TestAPI_GetCart_MintsSessionCookie(t *testing.T) {
	engine, _ := setupAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	recorder := httptest.NewRecorder()
	engine.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusOK, recorder.Code)

	var minted bool
	for _, cookie := range recorder.Result().Cookies() {
		if cookie.Name == "cart_session" && cookie.Value != "" {
			minted = true
		}
	}
	assert.True(t, minted, "expected a cart_session cookie for an anonymous caller")
}

func TestAPI_AddToCart(t *testing.T) {
	engine, _ := setupAPI(t)

	recorder, resp := doJSON(t, engine, http.MethodPost, "/api/v1/cart/items",
		gin.H{"product_id": "p1", "quantity": 2}, sessionHeaders("sess-1"))

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.True(t, resp.Success)

	cart := decodeCart(t, resp.Cart)
	require.NotNil(t, cart.SessionID)
	assert.Equal(t, "sess-1", *cart.SessionID)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "p1", cart.Items[0].ProductID)
	assert.Equal(t, 2, cart.Items[0].Quantity)
	assert.Equal(t, 200.0, cart.Items[0].Subtotal)
	assert.Equal(t, 200.0, cart.TotalAmount)
}

func TestAPI_AddToCart_BadPayload(t *testing.T) {
	engine, _ := setupAPI(t)

	recorder, resp := doJSON(t, engine, http.MethodPost, "/api/v1/cart/items",
		gin.H{"product_id": "p1", "quantity": 0}, sessionHeaders("sess-1"))

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.False(t, resp.Success)
	assert.Equal(t, "VALIDATION_INVALID_INPUT", resp.Error)
}

func TestAPI_AddToCart_ProductNotFound(t *testing.T) {
	engine, _ := setupAPI(t)

	recorder, resp := doJSON(t, engine, http.MethodPost, "/api/v1/cart/items",
		gin.H{"product_id": "ghost", "quantity": 1}, sessionHeaders("sess-1"))

	assert.Equal(t, http.StatusNotFound, recorder.Code)
	assert.False(t, resp.Success)
	assert.Equal(t, "PRODUCT_NOT_FOUND", resp.Error)
}

func TestAPI_AddToCart_InsufficientStock(t *testing.T) {
	engine, _ := setupAPI(t)

	recorder, resp := doJSON(t, engine, http.MethodPost, "/api/v1/cart/items",
		gin.H{"product_id": "p2", "quantity": 5}, sessionHeaders("sess-1"))

	assert.Equal(t, http.StatusConflict, recorder.Code)
	assert.False(t, resp.Success)
	assert.Equal(t, "STOCK_INSUFFICIENT", resp.Error)
	assert.Contains(t, resp.Message, "3 available")
}

func TestAPI_UpdateCartItem(t *testing.T) {
	engine, _ := setupAPI(t)

	_, _ = doJSON(t, engine, http.MethodPost, "/api/v1/cart/items",
		gin.H{"product_id": "p1", "quantity": 2}, sessionHeaders("sess-1"))

	recorder, resp := doJSON(t, engine, http.MethodPut, "/api/v1/cart/items/p1",
		gin.H{"quantity": 5}, sessionHeaders("sess-1"))

	require.Equal(t, http.StatusOK, recorder.Code)
	cart := decodeCart(t, resp.Cart)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 5, cart.Items[0].Quantity)
	assert.Equal(t, 500.0, cart.TotalAmount)
}

func TestAPI_UpdateCartItem_ZeroDeletesCart(t *testing.T) {
	engine, _ := setupAPI(t)

	_, _ = doJSON(t, engine, http.MethodPost, "/api/v1/cart/items",
		gin.H{"product_id": "p1", "quantity": 2}, sessionHeaders("sess-1"))

	recorder, resp := doJSON(t, engine, http.MethodPut, "/api/v1/cart/items/p1",
		gin.H{"quantity": 0}, sessionHeaders("sess-1"))

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.True(t, resp.Success)
	assert.Equal(t, "null", string(resp.Cart))

	_, resp = doJSON(t, engine, http.MethodGet, "/api/v1/cart", nil, sessionHeaders("sess-1"))
	assert.Equal(t, "null", string(resp.Cart))
}

func TestAPI_UpdateCartItem_Missing(t *testing.T) {
	engine, _ := setupAPI(t)

	_, _ = doJSON(t, engine, http.MethodPost, "/api/v1/cart/items",
		gin.H{"product_id": "p1", "quantity": 2}, sessionHeaders("sess-1"))

	recorder, resp := doJSON(t, engine, http.MethodPut, "/api/v1/cart/items/p2",
		gin.H{"quantity": 3}, sessionHeaders("sess-1"))

	assert.Equal(t, http.StatusNotFound, recorder.Code)
	assert.Equal(t, "CART_ITEM_NOT_FOUND", resp.Error)
}

func TestAPI_RemoveFromCart(t *testing.T) {
	engine, _ := setupAPI(t)

	_, _ = doJSON(t, engine, http.MethodPost, "/api/v1/cart/items",
		gin.H{"product_id": "p1", "quantity": 2}, sessionHeaders("sess-1"))
	_, _ = doJSON(t, engine, http.MethodPost, "/api/v1/cart/items",
		gin.H{"product_id": "p2", "quantity": 1}, sessionHeaders("sess-1"))

	recorder, resp := doJSON(t, engine, http.MethodDelete, "/api/v1/cart/items/p2",
		nil, sessionHeaders("sess-1"))

	require.Equal(t, http.StatusOK, recorder.Code)
	cart := decodeCart(t, resp.Cart)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "p1", cart.Items[0].ProductID)
}

func TestAPI_ClearCart(t *testing.T) {
	engine, _ := setupAPI(t)

	_, _ = doJSON(t, engine, http.MethodPost, "/api/v1/cart/items",
		gin.H{"product_id": "p1", "quantity": 2}, sessionHeaders("sess-1"))

	recorder, resp := doJSON(t, engine, http.MethodDelete, "/api/v1/cart", nil, sessionHeaders("sess-1"))

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.True(t, resp.Success)
	assert.Equal(t, "null", string(resp.Cart))
}

func TestAPI_AuthenticatedUserCart(t *testing.T) {
	engine, _ := setupAPI(t)
	headers := bearerHeaders(t, "user-1")

	recorder, resp := doJSON(t, engine, http.MethodPost, "/api/v1/cart/items",
		gin.H{"product_id": "p1", "quantity": 1}, headers)

	require.Equal(t, http.StatusOK, recorder.Code)
	cart := decodeCart(t, resp.Cart)
	require.NotNil(t, cart.UserID)
	assert.Equal(t, "user-1", *cart.UserID)
	assert.Nil(t, cart.SessionID)
}

func TestAPI_TransferCart(t *testing.T) {
	engine, _ := setupAPI(t)

	_, _ = doJSON(t, engine, http.MethodPost, "/api/v1/cart/items",
		gin.H{"product_id": "p1", "quantity": 2}, sessionHeaders("sess-1"))

	headers := bearerHeaders(t, "user-1")
	headers["X-Session-ID"] = "sess-1"
	recorder, resp := doJSON(t, engine, http.MethodPost, "/api/v1/cart/transfer", nil, headers)

	require.Equal(t, http.StatusOK, recorder.Code)
	cart := decodeCart(t, resp.Cart)
	require.NotNil(t, cart.UserID)
	assert.Equal(t, "user-1", *cart.UserID)
	assert.Equal(t, 2, cart.TotalItems)

	// The session no longer has a cart of its own.
	_, resp = doJSON(t, engine, http.MethodGet, "/api/v1/cart", nil, sessionHeaders("sess-1"))
	assert.Equal(t, "null", string(resp.Cart))
}

func TestAPI_TransferCart_WithoutUser(t *testing.T) {
	engine, _ := setupAPI(t)

	recorder, resp := doJSON(t, engine, http.MethodPost, "/api/v1/cart/transfer",
		nil, sessionHeaders("sess-1"))

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Equal(t, "VALIDATION_MISSING_OWNER", resp.Error)
}
