package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"strings"
	"time"
)

// Gateway actions understood by the spreadsheet web-app endpoint.
// Every remote operation is a POST of {action, data} to the same URL.
const (
	ActionLogin = "login"

	ActionTeachersList  = "teachers.list"
	ActionTeacherUpsert = "teachers.upsert"
	ActionTeacherDelete = "teachers.delete"

	ActionClassesList = "classes.list"
	ActionClassCreate = "classes.create"
	ActionClassUpdate = "classes.update"
	ActionClassDelete = "classes.delete"

	ActionAssignList   = "assign.list"
	ActionAssignCreate = "assign.create"
	ActionAssignUpdate = "assign.update"
	ActionAssignDelete = "assign.delete"

	ActionSubmitList   = "submit.list"
	ActionSubmitCreate = "submit.create"
	ActionScoreUpdate  = "score.update"
	ActionSubmitDelete = "submit.delete"

	// the backend also understands students.list/create/update/delete,
	// but no roster is kept here yet; names reserved for future use
	ActionStudentsList  = "students.list"
	ActionStudentCreate = "students.create"
	ActionStudentUpdate = "students.update"
	ActionStudentDelete = "students.delete"
)

// TransportError means the gateway endpoint could not be reached or did
// not speak the protocol: the network failed, the endpoint returned a
// non-200 status, or the body was not parseable. Retrying may help.
type TransportError struct {
	Action string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("gateway %s: %v", e.Action, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ConfigurationError means the endpoint answered but is not set up as a
// data backend: it served the deployment placeholder page, or something
// other than JSON, instead of running the backing script. Retrying will
// not help until the endpoint URL is fixed or redeployed.
type ConfigurationError struct {
	Action string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("gateway %s: %s", e.Action, e.Reason)
}

// ApplicationError is a failure reported by the backend itself in a
// well-formed {ok:false} response, e.g. a duplicate username.
type ApplicationError struct {
	Action  string
	Message string
}

func (e *ApplicationError) Error() string {
	return fmt.Sprintf("gateway %s: %s", e.Action, e.Message)
}

// emptySheetMarkers are error strings the backend emits when asked to
// read a sheet that has a header row but no data. An empty sheet is not
// an error condition for us: it decodes as an empty list.
var emptySheetMarkers = []string{
	"Số hàng trong dải ô phải tối thiểu là 1",
	"The number of rows in the range must be at least 1",
}

// placeholderMarker is the body served by a web-app deployment whose
// backing script has not been attached yet.
const placeholderMarker = "API is ready"

// Gateway talks to the spreadsheet web-app endpoint that holds the
// authoritative data. All calls share one protocol: POST a JSON
// envelope {action, data} and decode an {ok, data|error} reply.
type Gateway struct {
	URL    string
	Client *http.Client
}

func NewGateway(url string) *Gateway {
	return &Gateway{
		URL:    url,
		Client: &http.Client{Timeout: 30 * time.Second},
	}
}

type gatewayEnvelope struct {
	Action string      `json:"action"`
	Data   interface{} `json:"data,omitempty"`
}

type gatewayReply struct {
	OK    bool            `json:"ok"`
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

// Call performs one gateway action. If result is non-nil the reply's
// data field is decoded into it. A nil return means the backend
// reported success.
func (gw *Gateway) Call(action string, data interface{}, result interface{}) error {
	payload, err := json.Marshal(&gatewayEnvelope{Action: action, Data: data})
	if err != nil {
		return &TransportError{Action: action, Err: err}
	}

	// the endpoint only accepts simple requests, so the JSON body is
	// posted as text/plain
	req, err := http.NewRequest("POST", gw.URL, bytes.NewReader(payload))
	if err != nil {
		return &TransportError{Action: action, Err: err}
	}
	req.Header.Set("Content-Type", "text/plain;charset=utf-8")

	resp, err := gw.Client.Do(req)
	if err != nil {
		return &TransportError{Action: action, Err: err}
	}
	defer resp.Body.Close()

	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Action: action, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return &TransportError{Action: action, Err: fmt.Errorf("status %d (%s)", resp.StatusCode, resp.Status)}
	}

	if strings.Contains(string(body), placeholderMarker) {
		return &ConfigurationError{Action: action, Reason: "endpoint is a placeholder deployment, not a data backend"}
	}

	// a non-JSON reply means the URL points at something other than
	// the data backend
	reply := new(gatewayReply)
	if err := json.Unmarshal(body, reply); err != nil {
		return &ConfigurationError{Action: action, Reason: fmt.Sprintf("endpoint did not return JSON (%v); check the web-app URL", err)}
	}

	if !reply.OK {
		if isEmptySheet(reply.Error) {
			// treat as a successful read of an empty collection
			if result != nil {
				return json.Unmarshal([]byte("[]"), result)
			}
			return nil
		}
		msg := reply.Error
		if msg == "" {
			msg = "backend reported failure with no message"
		}
		return &ApplicationError{Action: action, Message: msg}
	}

	if result != nil {
		if len(reply.Data) == 0 {
			return &TransportError{Action: action, Err: fmt.Errorf("reply has no data field")}
		}
		if err := json.Unmarshal(reply.Data, result); err != nil {
			return &TransportError{Action: action, Err: fmt.Errorf("decoding reply data: %v", err)}
		}
	}
	return nil
}

func isEmptySheet(msg string) bool {
	for _, marker := range emptySheetMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
