package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/pion/webrtc/v4"
)

// DefaultSTUN is handed to live-stream clients when nothing is configured.
const DefaultSTUN = "stun:stun.l.google.com:19302"

// ICESource holds the raw ICE settings as they appear in the environment.
// JSON takes precedence over the STUN/TURN shorthand when both are set.
type ICESource struct {
	JSON           string
	STUN           string
	TURN           string
	TURNUsername   string
	TURNCredential string
}

func iceSourceFromEnv() ICESource {
	return ICESource{
		JSON:           os.Getenv("ICE_SERVERS_JSON"),
		STUN:           os.Getenv("STUN_URLS"),
		TURN:           os.Getenv("TURN_URLS"),
		TURNUsername:   os.Getenv("TURN_USERNAME"),
		TURNCredential: os.Getenv("TURN_CREDENTIAL"),
	}
}

// Servers resolves the list served by GET /live/ice-servers.
func (s ICESource) Servers() ([]webrtc.ICEServer, error) {
	var (
		servers []webrtc.ICEServer
		err     error
	)
	if strings.TrimSpace(s.JSON) != "" {
		servers, err = ParseICEServersJSON(s.JSON)
		if err != nil {
			return nil, fmt.Errorf("ICE_SERVERS_JSON: %w", err)
		}
	} else {
		servers, err = ParseICEServers(s.STUN, s.TURN, s.TURNUsername, s.TURNCredential)
		if err != nil {
			return nil, err
		}
	}
	if len(servers) == 0 {
		servers = []webrtc.ICEServer{{URLs: []string{DefaultSTUN}}}
	}
	return servers, nil
}

// iceSchemes maps the accepted url schemes to whether they need credentials.
var iceSchemes = map[string]bool{
	"stun":  false,
	"stuns": false,
	"turn":  true,
	"turns": true,
}

type iceServerEntry struct {
	URLs       oneOrMany `json:"urls"`
	Username   string    `json:"username,omitempty"`
	Credential string    `json:"credential,omitempty"`
}

// oneOrMany decodes a JSON string or array of strings.
type oneOrMany []string

func (o *oneOrMany) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var one string
		if err := json.Unmarshal(b, &one); err != nil {
			return err
		}
		*o = oneOrMany{one}
		return nil
	}
	return json.Unmarshal(b, (*[]string)(o))
}

// ParseICEServersJSON parses an RTCIceServer-shaped JSON array.
func ParseICEServersJSON(raw string) ([]webrtc.ICEServer, error) {
	var entries []iceServerEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, err
	}

	out := make([]webrtc.ICEServer, 0, len(entries))
	for i, e := range entries {
		server, err := newICEServer(e.URLs, e.Username, e.Credential)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		out = append(out, server)
	}
	return out, nil
}

// ParseICEServers builds the list from comma-separated STUN and TURN urls.
// TURN urls share one username/credential pair.
func ParseICEServers(stunURLs, turnURLs, turnUsername, turnCredential string) ([]webrtc.ICEServer, error) {
	var servers []webrtc.ICEServer

	if urls := splitList(stunURLs); len(urls) > 0 {
		if slices.ContainsFunc(urls, needsCredentials) {
			return nil, errors.New("STUN_URLS: turn urls belong in TURN_URLS")
		}
		server, err := newICEServer(urls, "", "")
		if err != nil {
			return nil, fmt.Errorf("STUN_URLS: %w", err)
		}
		servers = append(servers, server)
	}

	if urls := splitList(turnURLs); len(urls) > 0 {
		server, err := newICEServer(urls, turnUsername, turnCredential)
		if err != nil {
			return nil, fmt.Errorf("TURN_URLS: %w", err)
		}
		servers = append(servers, server)
	}

	return servers, nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func newICEServer(rawURLs []string, username, credential string) (webrtc.ICEServer, error) {
	urls := splitList(strings.Join(rawURLs, ","))
	if len(urls) == 0 {
		return webrtc.ICEServer{}, errors.New("missing urls")
	}
	for _, u := range urls {
		scheme, _, _ := strings.Cut(u, ":")
		if _, ok := iceSchemes[scheme]; !ok {
			return webrtc.ICEServer{}, fmt.Errorf("unsupported url scheme: %q", u)
		}
	}

	server := webrtc.ICEServer{URLs: urls, Username: strings.TrimSpace(username)}
	if !slices.ContainsFunc(urls, needsCredentials) {
		return server, nil
	}
	credential = strings.TrimSpace(credential)
	if server.Username == "" || credential == "" {
		return webrtc.ICEServer{}, errors.New("turn urls require username and credential")
	}
	server.Credential = credential
	return server, nil
}

func needsCredentials(u string) bool {
	scheme, _, _ := strings.Cut(u, ":")
	return iceSchemes[scheme]
}
