package event

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

func TestConfigureLogging(t *testing.T) {
	ConfigureLogging(false, false)
	if Log.Level != log.InfoLevel {
		t.Fatal("Wrong level")
	}
	ConfigureLogging(true, false)
	if Log.Level != log.DebugLevel {
		t.Fatal("Wrong level")
	}
}

func TestRequestLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	Log.SetOutput(&buf)
	defer Log.SetOutput(os.Stderr)
	ConfigureLogging(true, true)
	defer Log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	r := gin.New()
	r.Use(RequestLogger())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/ping", nil))

	out := buf.String()
	if !strings.Contains(out, `"path":"/ping"`) || !strings.Contains(out, `"code":200`) {
		t.Fatal("Wrong log output", out)
	}
}
