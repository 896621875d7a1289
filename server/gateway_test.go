package main

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/hongclass/speakgrinder/types"
)

func TestGatewayCall(t *testing.T) {
	var gotContentType, gotAction string
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		raw, err := ioutil.ReadAll(r.Body)
		require.NoError(t, err)
		var envelope struct {
			Action string          `json:"action"`
			Data   json.RawMessage `json:"data"`
		}
		require.NoError(t, json.Unmarshal(raw, &envelope))
		gotAction = envelope.Action
		fmt.Fprintf(w, `{"ok":true,"data":[{"id":"c1","name":"Beginning Conversation"}]}`)
	}))
	defer backend.Close()

	gw := NewGateway(backend.URL)
	classes := []*ClassGroup{}
	require.NoError(t, gw.Call(ActionClassesList, nil, &classes))

	// the endpoint only accepts simple requests
	assert.Equal(t, "text/plain;charset=utf-8", gotContentType)
	assert.Equal(t, ActionClassesList, gotAction)
	require.Len(t, classes, 1)
	assert.Equal(t, "Beginning Conversation", classes[0].Name)
}

func TestGatewayApplicationError(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"ok":false,"error":"username already exists"}`)
	}))
	defer backend.Close()

	gw := NewGateway(backend.URL)
	err := gw.Call(ActionTeacherUpsert, &Teacher{Username: "mshong"}, nil)
	require.Error(t, err)
	appErr, ok := err.(*ApplicationError)
	require.True(t, ok, "expected an ApplicationError, got %T", err)
	assert.Contains(t, appErr.Message, "username already exists")
}

func TestGatewayEmptySheet(t *testing.T) {
	// the backend reports an empty sheet as an error; it decodes as an
	// empty list
	for _, msg := range []string{
		"Số hàng trong dải ô phải tối thiểu là 1",
		"The number of rows in the range must be at least 1",
	} {
		backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reply, _ := json.Marshal(map[string]interface{}{"ok": false, "error": msg})
			w.Write(reply)
		}))

		gw := NewGateway(backend.URL)
		subs := []*Submission{}
		require.NoError(t, gw.Call(ActionSubmitList, nil, &subs))
		assert.Empty(t, subs)
		backend.Close()
	}
}

func TestGatewayPlaceholderDeployment(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "<html><body>API is ready</body></html>")
	}))
	defer backend.Close()

	gw := NewGateway(backend.URL)
	err := gw.Call(ActionClassesList, nil, &[]*ClassGroup{})
	require.Error(t, err)
	_, ok := err.(*ConfigurationError)
	assert.True(t, ok, "expected a ConfigurationError, got %T", err)
}

func TestGatewayNonJSONReply(t *testing.T) {
	// a 200 reply that is not JSON means the URL points at something
	// other than the data backend; the caller shows remediation
	// guidance rather than a retry suggestion
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, "<html><body>wrong page</body></html>")
	}))
	defer backend.Close()

	gw := NewGateway(backend.URL)
	err := gw.Call(ActionClassesList, nil, &[]*ClassGroup{})
	require.Error(t, err)
	confErr, ok := err.(*ConfigurationError)
	require.True(t, ok, "expected a ConfigurationError, got %T", err)
	assert.Contains(t, confErr.Reason, "did not return JSON")
}

func TestGatewayTransportErrors(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer backend.Close()

	gw := NewGateway(backend.URL)
	err := gw.Call(ActionClassesList, nil, &[]*ClassGroup{})
	require.Error(t, err)
	_, ok := err.(*TransportError)
	assert.True(t, ok, "expected a TransportError, got %T", err)

	// an unreachable endpoint, too
	gw = NewGateway("http://127.0.0.1:1/closed")
	err = gw.Call(ActionClassesList, nil, &[]*ClassGroup{})
	require.Error(t, err)
	_, ok = err.(*TransportError)
	assert.True(t, ok, "expected a TransportError, got %T", err)
}
