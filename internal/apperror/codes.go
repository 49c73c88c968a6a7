package apperror

// Code identifies an error condition across packages.
type Code string

// Kind groups codes by how callers should react to them.
type Kind int

const (
	KindInternal Kind = iota
	// KindInvalid means the input can never succeed as given.
	KindInvalid
	// KindNotFound is an answer from a healthy upstream.
	KindNotFound
	// KindUnavailable is transient; retrying later may succeed.
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindNotFound:
		return "not_found"
	case KindUnavailable:
		return "unavailable"
	default:
		return "internal"
	}
}

const (
	CodeRequiredField      Code = "REQUIRED_FIELD"
	CodeInvalidInput       Code = "INVALID_INPUT"
	CodeInvalidFormat      Code = "INVALID_FORMAT"
	CodeConfigurationError Code = "CONFIGURATION_ERROR"
	CodeUnknownError       Code = "UNKNOWN_ERROR"

	CodeExternalServiceError Code = "EXTERNAL_SERVICE_ERROR"
	CodeRateLimitExceeded    Code = "RATE_LIMIT_EXCEEDED"
	CodeCircuitOpen          Code = "CIRCUIT_OPEN"
	CodeCircuitHalfOpen      Code = "CIRCUIT_HALF_OPEN"

	CodeUnknownAsset         Code = "UNKNOWN_ASSET"
	CodeUnknownNetwork       Code = "UNKNOWN_NETWORK"
	CodeNetworkNotConfigured Code = "NETWORK_NOT_CONFIGURED"

	CodePriceNotFound      Code = "PRICE_NOT_FOUND"
	CodeInvalidPrice       Code = "INVALID_PRICE"
	CodeProxyRequestFailed Code = "PROXY_REQUEST_FAILED"
	CodeInvalidFeedMessage Code = "INVALID_FEED_MESSAGE"

	CodeEthereumConnectionFailed Code = "ETHEREUM_CONNECTION_FAILED"
	CodeEthereumRPCError         Code = "ETHEREUM_RPC_ERROR"

	CodeInvalidStrategy    Code = "INVALID_STRATEGY"
	CodeInvalidOrder       Code = "INVALID_ORDER"
	CodeRedisPublishFailed Code = "REDIS_PUBLISH_FAILED"

	CodeWebSocketConnectionError Code = "WEBSOCKET_CONNECTION_ERROR"
	CodeWebSocketClosed          Code = "WEBSOCKET_CLOSED"
)

type codeInfo struct {
	message string
	kind    Kind
}

var catalog = map[Code]codeInfo{
	CodeRequiredField:      {"required field is missing", KindInvalid},
	CodeInvalidInput:       {"invalid input", KindInvalid},
	CodeInvalidFormat:      {"invalid data format", KindInvalid},
	CodeConfigurationError: {"invalid configuration", KindInvalid},
	CodeUnknownError:       {"unknown error", KindInternal},

	CodeExternalServiceError: {"upstream service failed", KindUnavailable},
	CodeRateLimitExceeded:    {"rate limit exceeded", KindUnavailable},
	CodeCircuitOpen:          {"circuit breaker is open", KindUnavailable},
	CodeCircuitHalfOpen:      {"circuit breaker is half-open", KindUnavailable},

	CodeUnknownAsset:         {"unknown asset", KindInvalid},
	CodeUnknownNetwork:       {"unknown network", KindInvalid},
	CodeNetworkNotConfigured: {"network has no rpc endpoint", KindNotFound},

	CodePriceNotFound:      {"price not found", KindNotFound},
	CodeInvalidPrice:       {"price is not a valid decimal", KindInvalid},
	CodeProxyRequestFailed: {"price proxy request failed", KindUnavailable},
	CodeInvalidFeedMessage: {"malformed price feed frame", KindInvalid},

	CodeEthereumConnectionFailed: {"rpc dial failed", KindUnavailable},
	CodeEthereumRPCError:         {"rpc call failed", KindUnavailable},

	CodeInvalidStrategy:    {"invalid deal strategy", KindInvalid},
	CodeInvalidOrder:       {"invalid order", KindInvalid},
	CodeRedisPublishFailed: {"redis publish failed", KindUnavailable},

	CodeWebSocketConnectionError: {"websocket connect failed", KindUnavailable},
	CodeWebSocketClosed:          {"websocket closed", KindUnavailable},
}

// Kind returns the kind registered for c. Unregistered codes are internal.
func (c Code) Kind() Kind {
	return catalog[c].kind
}
