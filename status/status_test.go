package status

import (
	"net/http"
	"testing"
)

func TestReasonFromConverterBody(t *testing.T) {
	s := NewStatus([]byte(`{"error": "Model is not loaded."}`), 500, "Conversion failed")
	if s.Reason() != "Model is not loaded." {
		t.Fatal("Wrong reason", s.Reason())
	}
	if s.Error() != "Conversion failed" {
		t.Fatal("Wrong message", s.Error())
	}
}

func TestReasonFromDetail(t *testing.T) {
	s := NewStatus([]byte(`{"detail": "Not Found"}`), 404, "")
	if s.Reason() != "Not Found" {
		t.Fatal("Wrong reason", s.Reason())
	}
}

func TestReasonFallsBack(t *testing.T) {
	s := NewStatus([]byte("<html>bad gateway</html>"), http.StatusBadGateway, "")
	if s.Reason() != http.StatusText(http.StatusBadGateway) {
		t.Fatal("Wrong reason", s.Reason())
	}
	s = NewStatus(nil, http.StatusBadRequest, "Missing file")
	if s.Reason() != "Missing file" {
		t.Fatal("Wrong reason", s.Reason())
	}
}
