package server

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func bindRentRequest(t *testing.T, body string) (rentRequest, error) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, "/rentals", bytes.NewBufferString(body))
	c.Request.Header.Set("Content-Type", "application/json")

	var input rentRequest
	err := c.ShouldBindJSON(&input)
	return input, err
}

func TestRentRequestBinding(t *testing.T) {
	a := assert.New(t)

	t.Run("zero days binds so the period check can reject it", func(t *testing.T) {
		input, err := bindRentRequest(t, `{"contract_address":"0x47a91457a3a1f700097199fd63c039c4784384ab","token_id":"1a","days":0,"payment":"0"}`)
		a.NoError(err)
		a.Equal(int64(0), input.Days)
	})

	t.Run("omitted days binds as zero", func(t *testing.T) {
		input, err := bindRentRequest(t, `{"contract_address":"0x47a91457a3a1f700097199fd63c039c4784384ab","token_id":"1a","payment":"0"}`)
		a.NoError(err)
		a.Equal(int64(0), input.Days)
	})

	t.Run("missing contract address fails binding", func(t *testing.T) {
		_, err := bindRentRequest(t, `{"token_id":"1a","days":3,"payment":"300"}`)
		a.Error(err)
	})
}
