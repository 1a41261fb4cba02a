package model

// JSONRPCVersion JSON-RPC协议版本号
const JSONRPCVersion = "2.0"

// RPCRequest 表示转发给下游服务的JSON-RPC 2.0请求信封
// 信封由中枢在转发时构造，id使用随机UUID，调用方不需要感知
type RPCRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
	ID      string `json:"id"`
}
