// Command socure-api is a local stand-in for the ID+ EmailAuthScore endpoint.
// Magic emails and national IDs select failure modes so end-to-end runs can
// exercise every decision path without calling the real service.
package main

import (
	"crypto/sha256"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultPort      = "8081"
	defaultAPIKey    = "socure-sandbox-key"
	defaultLatencyMs = "50"
	authScheme       = "SocureApiKey "
)

type verifyRequest struct {
	Modules         []string `json:"modules"`
	FirstName       string   `json:"firstName"`
	SurName         string   `json:"surName"`
	PhysicalAddress string   `json:"physicalAddress"`
	Zip             string   `json:"zip"`
	Country         string   `json:"country"`
	Email           string   `json:"email"`
	MobileNumber    string   `json:"mobileNumber"`
	DOB             string   `json:"dob"`
	NationalID      string   `json:"nationalId"`
}

type errorResponse struct {
	Status      string `json:"status"`
	ReferenceID string `json:"referenceId"`
	Msg         string `json:"msg"`
}

// scenario forces a response shape regardless of the request contents.
type scenario string

const (
	scenarioPass          scenario = "pass"
	scenarioLowScore      scenario = "low_score"
	scenarioKYCMismatch   scenario = "kyc_mismatch"
	scenarioMissing       scenario = "missing_sections"
	scenarioMalformed     scenario = "malformed"
	scenarioServerError   scenario = "server_error"
	scenarioSlow          scenario = "slow"
	scenarioInvalidInput  scenario = "bad_request"
	scenarioRateLimited   scenario = "rate_limited"
	scenarioDeterministic scenario = "deterministic"
)

// magicEmails and magicNationalIDs let tests pick a scenario.
var magicEmails = map[string]scenario{
	"pass@socure.test":       scenarioPass,
	"lowscore@socure.test":   scenarioLowScore,
	"mismatch@socure.test":   scenarioKYCMismatch,
	"missing@socure.test":    scenarioMissing,
	"malformed@socure.test":  scenarioMalformed,
	"error@socure.test":      scenarioServerError,
	"slow@socure.test":       scenarioSlow,
	"badrequest@socure.test": scenarioInvalidInput,
	"ratelimit@socure.test":  scenarioRateLimited,
}

var magicNationalIDs = map[string]scenario{
	"000000001": scenarioPass,
	"000000002": scenarioKYCMismatch,
	"000000003": scenarioMissing,
	"000000500": scenarioServerError,
}

var (
	apiKey    = getEnv("API_KEY", defaultAPIKey)
	latencyMs = getEnvInt("LATENCY_MS", defaultLatencyMs)
	slowMs    = getEnvInt("SLOW_MS", "15000")
)

func main() {
	port := getEnv("PORT", defaultPort)

	http.HandleFunc("/health", handleHealth)
	http.HandleFunc("/api/3.0/EmailAuthScore", handleVerify)

	log.Printf("mock socure ID+ API listening on :%s (latency %dms)", port, latencyMs)
	srv := &http.Server{Addr: ":" + port, ReadHeaderTimeout: 5 * time.Second}
	if err := srv.ListenAndServe(); err != nil {
		log.Fatal(err)
	}
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": "socure-api"})
}

func handleVerify(w http.ResponseWriter, r *http.Request) {
	time.Sleep(time.Duration(latencyMs) * time.Millisecond)
	refID := newReferenceID()

	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Status: "Error", ReferenceID: refID, Msg: "method not allowed"})
		return
	}
	if r.Header.Get("Authorization") != authScheme+apiKey {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Status: "Error", ReferenceID: refID, Msg: "invalid api key"})
		return
	}

	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Status: "Error", ReferenceID: refID, Msg: "invalid json: " + err.Error()})
		return
	}
	if len(req.Modules) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Status: "Error", ReferenceID: refID, Msg: "modules is required"})
		return
	}

	sc := pickScenario(req)
	log.Printf("verify modules=%v scenario=%s ref=%s", req.Modules, sc, refID)

	switch sc {
	case scenarioServerError:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Status: "Error", ReferenceID: refID, Msg: "internal error"})
		return
	case scenarioInvalidInput:
		writeJSON(w, http.StatusBadRequest, errorResponse{Status: "Error", ReferenceID: refID, Msg: "invalid input"})
		return
	case scenarioRateLimited:
		w.Header().Set("Retry-After", "1")
		writeJSON(w, http.StatusTooManyRequests, errorResponse{Status: "Error", ReferenceID: refID, Msg: "rate limited"})
		return
	case scenarioMalformed:
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"referenceId":"` + refID + `","kyc":{"fieldValidations":"oops"},"emailRisk":{"score":"high"}`))
		return
	case scenarioSlow:
		select {
		case <-time.After(time.Duration(slowMs) * time.Millisecond):
		case <-r.Context().Done():
			return
		}
		sc = scenarioPass
	}

	writeJSON(w, http.StatusOK, buildResponse(req, sc, refID))
}

func pickScenario(req verifyRequest) scenario {
	if sc, ok := magicEmails[strings.ToLower(req.Email)]; ok {
		return sc
	}
	if sc, ok := magicNationalIDs[req.NationalID]; ok {
		return sc
	}
	return scenarioDeterministic
}

// buildResponse fills one section per requested module. Unknown modules are
// answered with an empty object, as the real service does for modules it
// has nothing to say about.
func buildResponse(req verifyRequest, sc scenario, refID string) map[string]any {
	resp := map[string]any{"referenceId": refID}
	if sc == scenarioMissing {
		return resp
	}

	seed := sha256.Sum256([]byte(req.Email + "|" + req.NationalID + "|" + req.FirstName))
	score := func(i int) float64 {
		switch sc {
		case scenarioPass:
			return 0.99
		case scenarioLowScore:
			return 0.42
		default:
			// 0.80 to 0.99, stable per identity.
			return 0.80 + float64(seed[i%len(seed)]%20)/100
		}
	}

	for i, m := range req.Modules {
		switch strings.ToLower(m) {
		case "kyc":
			fv := 0.99
			if sc == scenarioKYCMismatch {
				fv = 0.01
			}
			resp["kyc"] = map[string]any{
				"reasonCodes": []string{"I919"},
				"fieldValidations": map[string]float64{
					"firstName": 0.99,
					"surName":   0.99,
					"dob":       fv,
					"ssn":       0.99,
				},
			}
		case "emailriskscore":
			resp["emailRisk"] = map[string]any{"reasonCodes": []string{"I520"}, "score": score(i)}
		case "addressriskscore":
			resp["addressRisk"] = map[string]any{"reasonCodes": []string{"I704"}, "score": score(i)}
		case "phoneriskscore":
			resp["phoneRisk"] = map[string]any{"reasonCodes": []string{"I614"}, "score": score(i)}
		default:
			resp[strings.ToLower(m)] = map[string]any{}
		}
	}
	return resp
}

func newReferenceID() string {
	sum := sha256.Sum256([]byte(time.Now().Format(time.RFC3339Nano)))
	const hex = "0123456789abcdef"
	b := make([]byte, 0, 36)
	for i, c := range sum[:16] {
		if i == 4 || i == 6 || i == 8 || i == 10 {
			b = append(b, '-')
		}
		b = append(b, hex[c>>4], hex[c&0x0f])
	}
	return string(b)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode response: %v", err)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key, defaultValue string) int {
	value := getEnv(key, defaultValue)
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("invalid integer for %s, using default %s", key, defaultValue)
		n, _ = strconv.Atoi(defaultValue)
	}
	return n
}
