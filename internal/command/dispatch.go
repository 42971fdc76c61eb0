package command

import (
	"encoding/json"
	"net/http"

	"github.com/duckcoding/duckcoding/internal/pricing"
	"github.com/duckcoding/duckcoding/internal/profile"
	"github.com/duckcoding/duckcoding/internal/proxymgr"
	"github.com/duckcoding/duckcoding/internal/stats"
	"github.com/duckcoding/duckcoding/internal/watch"
)

// Dispatch routes one named command (the table in §9) to its Surface
// method, decoding params as that command's own request shape. This is
// the one place that knows the full command table; everything else calls
// through either Dispatch (standalone, over the loopback command port) or
// the Surface methods directly (embedded, in-process).
func (s *Surface) Dispatch(name string, params json.RawMessage) (any, error) {
	switch name {
	case "list_profiles":
		var p struct{ Tool string }
		if err := decode(params, &p); err != nil {
			return nil, err
		}
		return s.ListProfiles(p.Tool)

	case "create_profile":
		var p struct {
			Tool    string
			Name    string
			Payload profile.CreatePayload
		}
		if err := decode(params, &p); err != nil {
			return nil, err
		}
		return s.CreateProfile(p.Tool, p.Name, p.Payload)

	case "update_profile":
		var p struct {
			Tool  string
			Name  string
			Patch profile.UpdatePatch
		}
		if err := decode(params, &p); err != nil {
			return nil, err
		}
		return s.UpdateProfile(p.Tool, p.Name, p.Patch)

	case "delete_profile":
		var p struct{ Tool, Name string }
		if err := decode(params, &p); err != nil {
			return nil, err
		}
		return nil, s.DeleteProfile(p.Tool, p.Name)

	case "activate_profile":
		var p struct{ Tool, Name string }
		if err := decode(params, &p); err != nil {
			return nil, err
		}
		return s.ActivateProfile(p.Tool, p.Name)

	case "import_from_native":
		var p struct{ Tool, Name string }
		if err := decode(params, &p); err != nil {
			return nil, err
		}
		return s.ImportFromNative(p.Tool, p.Name)

	case "get_active_config":
		var p struct{ Tool string }
		if err := decode(params, &p); err != nil {
			return nil, err
		}
		return s.GetActiveConfig(p.Tool)

	case "get_global_config":
		return s.GetGlobalConfig()

	case "save_global_config":
		var cfg GlobalConfig
		if err := decode(params, &cfg); err != nil {
			return nil, err
		}
		return nil, s.SaveGlobalConfig(cfg)

	case "start_tool_proxy":
		var p struct{ Tool string }
		if err := decode(params, &p); err != nil {
			return nil, err
		}
		return nil, s.StartToolProxy(p.Tool)

	case "stop_tool_proxy":
		var p struct{ Tool string }
		if err := decode(params, &p); err != nil {
			return nil, err
		}
		return nil, s.StopToolProxy(p.Tool)

	case "get_all_proxy_status":
		return s.GetAllProxyStatus(), nil

	case "update_proxy_config":
		var p struct {
			Tool   string
			Config proxymgr.Config
		}
		if err := decode(params, &p); err != nil {
			return nil, err
		}
		return nil, s.UpdateProxyConfig(p.Tool, p.Config)

	case "get_proxy_config":
		var p struct{ Tool string }
		if err := decode(params, &p); err != nil {
			return nil, err
		}
		return s.GetProxyConfig(p.Tool)

	case "get_all_proxy_configs":
		return s.GetAllProxyConfigs(), nil

	case "block_external_change":
		var p struct{ Tool string }
		if err := decode(params, &p); err != nil {
			return nil, err
		}
		return nil, s.BlockExternalChange(p.Tool)

	case "allow_external_change":
		var p struct{ Tool string }
		if err := decode(params, &p); err != nil {
			return nil, err
		}
		return nil, s.AllowExternalChange(p.Tool)

	case "get_watch_config":
		return s.GetWatchConfig(), nil

	case "update_watch_config":
		var wc watch.Config
		if err := decode(params, &wc); err != nil {
			return nil, err
		}
		return nil, s.UpdateWatchConfig(wc)

	case "query_token_logs":
		var p struct {
			Filters  stats.LogFilters
			Page     int
			PageSize int
		}
		if err := decode(params, &p); err != nil {
			return nil, err
		}
		return s.QueryTokenLogs(p.Filters, p.Page, p.PageSize)

	case "get_token_stats_summary":
		var p struct{ Filters stats.LogFilters }
		if err := decode(params, &p); err != nil {
			return nil, err
		}
		return s.GetTokenStatsSummary(p.Filters)

	case "query_token_trends":
		var p struct {
			Filters     stats.LogFilters
			Granularity stats.Granularity
		}
		if err := decode(params, &p); err != nil {
			return nil, err
		}
		return s.QueryTokenTrends(p.Filters, p.Granularity)

	case "query_cost_summary":
		var p struct {
			Filters     stats.LogFilters
			Granularity stats.Granularity
		}
		if err := decode(params, &p); err != nil {
			return nil, err
		}
		return s.QueryCostSummary(p.Filters, p.Granularity)

	case "list_pricing_templates":
		return s.ListPricingTemplates(), nil

	case "save_pricing_template":
		var t pricing.Template
		if err := decode(params, &t); err != nil {
			return nil, err
		}
		return nil, s.SavePricingTemplate(t)

	case "delete_pricing_template":
		var p struct{ ID string }
		if err := decode(params, &p); err != nil {
			return nil, err
		}
		return nil, s.DeletePricingTemplate(p.ID)

	case "set_default_template":
		var p struct{ Tool, TemplateID string }
		if err := decode(params, &p); err != nil {
			return nil, err
		}
		return nil, s.SetDefaultTemplate(p.Tool, p.TemplateID)

	case "get_session_list":
		var p struct{ Tool string }
		if err := decode(params, &p); err != nil {
			return nil, err
		}
		return s.GetSessionList(p.Tool)

	case "get_session_stats":
		var p struct{ Tool, SessionID string }
		if err := decode(params, &p); err != nil {
			return nil, err
		}
		return s.GetSessionStats(p.Tool, p.SessionID)

	case "update_session_note":
		var p struct{ SessionID, Note string }
		if err := decode(params, &p); err != nil {
			return nil, err
		}
		return nil, s.UpdateSessionNote(p.SessionID, p.Note)

	case "update_session_config":
		var p struct{ SessionID, ConfigMode, ConfigProfileName string }
		if err := decode(params, &p); err != nil {
			return nil, err
		}
		return nil, s.UpdateSessionConfig(p.SessionID, p.ConfigMode, p.ConfigProfileName)

	case "delete_session":
		var p struct{ SessionID string }
		if err := decode(params, &p); err != nil {
			return nil, err
		}
		return nil, s.DeleteSession(p.SessionID)

	case "clear_all_sessions":
		return nil, s.ClearAllSessions()

	default:
		return nil, New(KindInvalidArgument, "unknown command %q", name)
	}
}

func decode(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return New(KindInvalidArgument, "decoding params: %v", err)
	}
	return nil
}

// envelope is the wire shape every /cmd response takes.
type envelope struct {
	OK    bool       `json:"ok"`
	Data  any        `json:"data,omitempty"`
	Error *wireError `json:"error,omitempty"`
}

type wireError struct {
	Kind    Kind           `json:"kind"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// ServeHTTP makes Surface itself the handler for the daemon's loopback
// command port: POST {"command": "...", "params": {...}} → envelope.
func (s *Surface) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Command string          `json:"command"`
		Params  json.RawMessage `json:"params"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeEnvelope(w, nil, New(KindInvalidArgument, "malformed request: %v", err))
		return
	}
	data, err := s.Dispatch(req.Command, req.Params)
	writeEnvelope(w, data, err)
}

func writeEnvelope(w http.ResponseWriter, data any, err error) {
	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		ce, ok := As(err)
		if !ok {
			ce = &Error{Kind: KindInternal, Message: err.Error()}
		}
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(envelope{OK: false, Error: &wireError{Kind: ce.Kind, Message: ce.Message, Details: ce.Details}})
		return
	}
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(envelope{OK: true, Data: data})
}
