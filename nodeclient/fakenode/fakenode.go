// Package fakenode is an in-memory node serving the HTTP API, for tests.
//
// Submitted transactions are decoded and verified like a real node would
// before their nonce is consumed.
package fakenode

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"

	"github.com/julienschmidt/httprouter"
	"github.com/lamden/golampy/core/types"
)

const SubmitSuccess = "Transaction successfully submitted to the network."

// Method mirrors the node's method description.
type Method struct {
	Name      string   `json:"name"`
	Arguments []string `json:"arguments"`
}

type contract struct {
	code    string
	methods []Method
}

// Node is a fake node. All methods are safe for concurrent use.
type Node struct {
	mu        sync.Mutex
	id        types.Processor
	status    string
	reject    string
	nonces    map[string]uint64
	contracts map[string]contract
	variables map[string]json.RawMessage
	submitted [][]byte
	blockHash string
	blockNum  uint64
	requests  map[string]int
}

// New creates an online node identified by id.
func New(id types.Processor) *Node {
	return &Node{
		id:        id,
		status:    "online",
		nonces:    make(map[string]uint64),
		contracts: make(map[string]contract),
		variables: make(map[string]json.RawMessage),
		requests:  make(map[string]int),
		blockHash: hex.EncodeToString(make([]byte, 32)),
	}
}

// Server starts an httptest server for the node. The caller closes it.
func (n *Node) Server() *httptest.Server {
	return httptest.NewServer(n.Handler())
}

func (n *Node) ID() types.Processor { return n.id }

func (n *Node) SetStatus(s string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.status = s
}

// Reject makes every following submission fail with msg. An empty msg
// accepts submissions again.
func (n *Node) Reject(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reject = msg
}

func (n *Node) SetNonce(vkHex string, nonce uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.nonces[vkHex] = nonce
}

func (n *Node) AddContract(name, code string, methods ...Method) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.contracts[name] = contract{code: code, methods: methods}
}

// SetVariable stores the JSON encoding of value under contract.variable and
// the optional hash keys.
func (n *Node) SetVariable(contractName, variable string, value interface{}, keys ...string) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.variables[variableKey(contractName, variable, strings.Join(keys, ":"))] = raw
	return nil
}

func (n *Node) SetLatestBlock(hash string, number uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.blockHash, n.blockNum = hash, number
}

// Submitted returns the raw transactions accepted so far.
func (n *Node) Submitted() [][]byte {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([][]byte(nil), n.submitted...)
}

// Requests returns how many times path was requested.
func (n *Node) Requests(path string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.requests[path]
}

// Handler returns the node's HTTP API.
func (n *Node) Handler() http.Handler {
	r := httprouter.New()
	r.GET("/ping", n.ping)
	r.GET("/id", n.identity)
	r.GET("/nonce/:vk", n.nonce)
	r.POST("/", n.submit)
	r.GET("/contracts", n.listContracts)
	r.GET("/contracts/:name", n.contractCode)
	r.GET("/contracts/:name/:variable", n.contractVariable)
	r.GET("/latest_block", n.latestBlock)
	return n.count(r)
}

func (n *Node) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n.mu.Lock()
		n.requests[r.URL.Path]++
		n.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (n *Node) ping(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	n.mu.Lock()
	defer n.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"status": n.status})
}

func (n *Node) identity(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, map[string]string{"verifying_key": n.id.Hex()})
}

func (n *Node) nonce(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	vk := ps.ByName("vk")
	if _, err := types.HexToProcessor(vk); err != nil {
		writeError(w, http.StatusBadRequest, "invalid verifying key")
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"nonce":     n.nonces[vk],
		"processor": n.id.Hex(),
		"sender":    vk,
	})
}

func (n *Node) submit(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	tx, err := types.DecodeTransaction(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Malformed request body.")
		return
	}
	if err := tx.Verify(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	hash, err := tx.HashHex()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	sender := tx.Sender()
	vk := hex.EncodeToString(sender[:])

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.reject != "" {
		writeError(w, http.StatusBadRequest, n.reject)
		return
	}
	if tx.Processor() != n.id {
		writeError(w, http.StatusBadRequest, "Transaction processor does not match expected processor.")
		return
	}
	if want := n.nonces[vk]; tx.Nonce() != want {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Transaction nonce %d invalid, expected %d.", tx.Nonce(), want))
		return
	}
	n.nonces[vk]++
	n.submitted = append(n.submitted, raw)
	writeJSON(w, http.StatusOK, map[string]string{"success": SubmitSuccess, "hash": hash})
}

func (n *Node) listContracts(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	n.mu.Lock()
	defer n.mu.Unlock()
	names := make([]string, 0, len(n.contracts))
	for name := range n.contracts {
		names = append(names, name)
	}
	sort.Strings(names)
	writeJSON(w, http.StatusOK, map[string]interface{}{"contracts": names})
}

func (n *Node) contractCode(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	name := ps.ByName("name")
	n.mu.Lock()
	defer n.mu.Unlock()
	c, ok := n.contracts[name]
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("%s does not exist", name))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"name": name, "code": c.code})
}

func (n *Node) contractVariable(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	name, variable := ps.ByName("name"), ps.ByName("variable")
	n.mu.Lock()
	defer n.mu.Unlock()
	c, ok := n.contracts[name]
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("%s does not exist", name))
		return
	}
	if variable == "methods" {
		methods := c.methods
		if methods == nil {
			methods = []Method{}
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"methods": methods})
		return
	}
	value, ok := n.variables[variableKey(name, variable, r.URL.Query().Get("key"))]
	if !ok {
		value = json.RawMessage("null")
	}
	writeJSON(w, http.StatusOK, map[string]json.RawMessage{"value": value})
}

func (n *Node) latestBlock(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	n.mu.Lock()
	defer n.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]interface{}{"hash": n.blockHash, "number": n.blockNum})
}

func variableKey(contractName, variable, key string) string {
	k := contractName + "." + variable
	if key != "" {
		k += ":" + key
	}
	return k
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
