package controller

import (
	"encoding/hex"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.ezyvote.org/ezyvote/core/access/wallet"
	"go.ezyvote.org/ezyvote/core/ordering/serial"
	"go.ezyvote.org/ezyvote/core/txn/signed"
	"go.ezyvote.org/ezyvote/proxy"
	proxyhttp "go.ezyvote.org/ezyvote/proxy/http"
	"golang.org/x/xerrors"
)

// maxTransactionSize is the maximum size of a transaction submitted over
// HTTP.
const maxTransactionSize = 1 << 20

// TransactionResponse is the response of a submitted transaction.
type TransactionResponse struct {
	ID       string `json:"id,omitempty"`
	Accepted bool   `json:"accepted"`
	Message  string `json:"message,omitempty"`
	Height   uint64 `json:"height,omitempty"`
}

func registerRoutes(srv proxy.Proxy, srvc *serial.Service) {
	srv.RegisterHandler("/transactions", submitHandler(srvc), http.MethodPost)
	srv.RegisterHandler("/nonces/{address}", nonceHandler(srvc), http.MethodGet)
	srv.RegisterHandler("/records/{height:[0-9]+}", recordHandler(srvc), http.MethodGet)
}

// submitHandler accepts a JSON signed transaction. The signature is verified
// before the transaction is added to the ledger.
func submitHandler(srvc *serial.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := io.ReadAll(io.LimitReader(r.Body, maxTransactionSize))
		if err != nil {
			proxyhttp.WriteError(w, r, http.StatusBadRequest, xerrors.Errorf("failed to read body: %v", err))
			return
		}

		tx, err := signed.Decode(data)
		if err != nil {
			proxyhttp.WriteError(w, r, http.StatusBadRequest, xerrors.Errorf("failed to decode: %v", err))
			return
		}

		err = tx.Verify()
		if err != nil {
			proxyhttp.WriteError(w, r, http.StatusUnauthorized, err)
			return
		}

		resp := TransactionResponse{ID: hex.EncodeToString(tx.GetID())}

		res, err := srvc.Add(r.Context(), tx)
		if err != nil {
			status := http.StatusInternalServerError
			if res.Reason != nil {
				status = http.StatusUnprocessableEntity
			}

			resp.Message = err.Error()
			proxyhttp.WriteJSON(w, r, status, resp)

			return
		}

		resp.Accepted = true
		resp.Height = srvc.GetHeight()

		proxyhttp.WriteJSON(w, r, http.StatusOK, resp)
	}
}

func nonceHandler(srvc *serial.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		addr, err := wallet.ParseAddress(mux.Vars(r)["address"])
		if err != nil {
			proxyhttp.WriteError(w, r, http.StatusBadRequest, err)
			return
		}

		nonce, err := srvc.GetNonce(addr)
		if err != nil {
			proxyhttp.WriteError(w, r, http.StatusInternalServerError, err)
			return
		}

		proxyhttp.WriteJSON(w, r, http.StatusOK, map[string]uint64{"nonce": nonce})
	}
}

func recordHandler(srvc *serial.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		height, err := strconv.ParseUint(mux.Vars(r)["height"], 10, 64)
		if err != nil {
			proxyhttp.WriteError(w, r, http.StatusBadRequest, err)
			return
		}

		record, err := srvc.GetRecord(height)
		if err != nil {
			proxyhttp.WriteError(w, r, http.StatusNotFound, err)
			return
		}

		proxyhttp.WriteJSON(w, r, http.StatusOK, record)
	}
}
