package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"pumpcore/internal/catalog"
	"pumpcore/internal/connection"
	"pumpcore/internal/contract"
	"pumpcore/internal/creation"
	"pumpcore/internal/domain"
	"pumpcore/internal/estimate"
	"pumpcore/internal/ipfs"
	"pumpcore/internal/storage"
	"pumpcore/internal/trading"
	"pumpcore/internal/units"
)

// DefaultHistoryLimit caps /history when no limit is given.
const DefaultHistoryLimit = 100

// ErrInvalidAddress is returned for path addresses that are not hex addresses.
var ErrInvalidAddress = errors.New("invalid token address")

// TokenResponse is a TokenInfo with its derived display fields.
type TokenResponse struct {
	*domain.TokenInfo
	MarketCap    float64 `json:"marketCap"`
	ShortCreator string  `json:"shortCreator"`
}

func newTokenResponse(info *domain.TokenInfo) TokenResponse {
	return TokenResponse{TokenInfo: info, MarketCap: info.MarketCap(), ShortCreator: info.ShortCreator()}
}

// EstimateResponse is the JSON response for /estimate.
type EstimateResponse struct {
	Side     string  `json:"side"`
	Amount   string  `json:"amount"`
	Price    float64 `json:"price"`
	Estimate float64 `json:"estimate"`
	// Applied is false when amount did not parse and the prior value was kept.
	Applied bool `json:"applied"`
}

// TradeRequest is the body of /buy and /sell.
type TradeRequest struct {
	Amount string `json:"amount"`
}

// WriteResponse reports a submitted write.
type WriteResponse struct {
	TxHash   string `json:"txHash"`
	ImageCID string `json:"imageCid,omitempty"`
}

// ErrorResponse is the JSON error body. Fields carries per-field form errors.
type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func tokenAddress(r *http.Request) (common.Address, error) {
	raw := mux.Vars(r)["address"]
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, raw)
	}
	return common.HexToAddress(raw), nil
}

func (s *Server) handleListTokens(w http.ResponseWriter, r *http.Request) {
	infos, err := s.catalog.List(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	resp := make([]TokenResponse, 0, len(infos))
	for _, info := range infos {
		resp = append(resp, newTokenResponse(info))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetToken(w http.ResponseWriter, r *http.Request) {
	addr, err := tokenAddress(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	info, err := s.catalog.Get(r.Context(), addr)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newTokenResponse(info))
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	addr, err := tokenAddress(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	chart, err := s.catalog.Chart(r.Context(), addr)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chart)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	addr, err := tokenAddress(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	limit := DefaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			s.writeError(w, fmt.Errorf("%w: limit %q", storage.ErrInvalidInput, raw))
			return
		}
	}
	snaps, err := s.catalog.History(r.Context(), addr, limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snaps)
}

func (s *Server) handleEstimate(w http.ResponseWriter, r *http.Request) {
	addr, err := tokenAddress(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	q := r.URL.Query()
	side, err := trading.ParseSide(q.Get("side"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	// An unparseable prior is treated as no prior.
	prior, _ := estimate.Parse(q.Get("prior"))

	info, err := s.catalog.Get(r.Context(), addr)
	if err != nil {
		s.writeError(w, err)
		return
	}

	quote := estimate.NewQuote(prior, prior)
	resp := EstimateResponse{Side: string(side), Amount: q.Get("amount"), Price: info.Price}
	if side == trading.SideSell {
		resp.Applied = quote.UpdateSell(info.Price, resp.Amount)
		resp.Estimate = quote.Sell()
	} else {
		resp.Applied = quote.UpdateBuy(info.Price, resp.Amount)
		resp.Estimate = quote.Buy()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTrade(w http.ResponseWriter, r *http.Request) {
	addr, err := tokenAddress(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	side := trading.SideBuy
	if strings.HasSuffix(r.URL.Path, "/sell") {
		side = trading.SideSell
	}

	var req TradeRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&req); err != nil {
		s.writeError(w, fmt.Errorf("%w: %v", units.ErrInvalidAmount, err))
		return
	}

	form := trading.NewForm(s.session, side, addr, s.logger)
	form.Amount = req.Amount
	hash, err := form.Submit(r.Context())
	if err != nil {
		switch {
		case errors.Is(err, connection.ErrNotConnected):
			writeJSON(w, http.StatusForbidden, ErrorResponse{Error: connection.ErrNotConnected.Error()})
		case errors.Is(err, contract.ErrReadOnly):
			writeJSON(w, http.StatusForbidden, ErrorResponse{Error: contract.ErrReadOnly.Error()})
		case form.Error == trading.FailureMessage:
			writeJSON(w, http.StatusBadGateway, ErrorResponse{Error: form.Error})
		default:
			s.writeError(w, err)
		}
		return
	}
	writeJSON(w, http.StatusOK, WriteResponse{TxHash: hash.Hex()})
}

func (s *Server) handleCreateToken(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, creation.MaxImageBytes+1<<20)
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{
				Error:  "invalid token form",
				Fields: map[string]string{creation.FieldImage: "Image must be less than 5MB"},
			})
			return
		}
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	form := creation.NewForm(creation.Options{
		Session:         s.session,
		Pinner:          s.pinner,
		RequiredChainID: s.requiredChainID,
		Deposit:         s.deposit,
		Logger:          s.logger,
	})
	form.Name = r.FormValue("name")
	form.SetTicker(r.FormValue("ticker"))
	if k := r.FormValue("k"); k != "" {
		form.K = k
	}
	form.Description = r.FormValue("description")

	if file, header, err := r.FormFile("image"); err == nil {
		content, err := io.ReadAll(io.LimitReader(file, creation.MaxImageBytes+1))
		_ = file.Close()
		if err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
		if !form.SetImage(header.Filename, content) {
			writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{Error: "invalid token form", Fields: form.Errors})
			return
		}
	} else if !errors.Is(err, http.ErrMissingFile) {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	hash, err := form.Submit(r.Context())
	if err != nil {
		writeJSON(w, statusFor(err), ErrorResponse{Error: submitMessage(form, err), Fields: form.Errors})
		return
	}
	writeJSON(w, http.StatusCreated, WriteResponse{TxHash: hash.Hex(), ImageCID: form.ImageCID})
}

func submitMessage(form *creation.Form, err error) string {
	if msg := form.Errors[creation.FieldSubmit]; msg != "" {
		return msg
	}
	return err.Error()
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrInvalidAddress),
		errors.Is(err, units.ErrInvalidAmount),
		errors.Is(err, trading.ErrEmptyAmount),
		errors.Is(err, trading.ErrUnknownSide),
		errors.Is(err, creation.ErrInvalidForm),
		errors.Is(err, storage.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, catalog.ErrTokenNotFound),
		errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, connection.ErrNotConnected),
		errors.Is(err, contract.ErrReadOnly):
		return http.StatusForbidden
	case errors.Is(err, connection.ErrWrongChain):
		return http.StatusConflict
	case errors.Is(err, creation.ErrUploadFailed),
		errors.Is(err, ipfs.ErrMissingIdentifier),
		errors.Is(err, contract.ErrUnexpectedShape):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Error(err))
	}
	writeJSON(w, code, ErrorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
