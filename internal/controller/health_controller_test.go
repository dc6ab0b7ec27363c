package controller

import (
	"encoding/json"
	"net/http"
	"testing"

	"manhaj_backend/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthCheck(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := testutil.DB(t)
	r := gin.New()
	r.GET("/api/health", NewHealthController(db, nil, "minio").HealthCheck)

	w := get(r, "/api/health")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data struct {
			Status     string            `json:"status"`
			Components map[string]string `json:"components"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Data.Status)
	assert.Equal(t, map[string]string{"database": "up", "cache": "disabled", "storage": "minio"}, body.Data.Components)
}

func TestHealthCheckDatabaseDown(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := testutil.DB(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	r := gin.New()
	r.GET("/api/health", NewHealthController(db, nil, "local").HealthCheck)
	assert.Equal(t, http.StatusServiceUnavailable, get(r, "/api/health").Code)
}
