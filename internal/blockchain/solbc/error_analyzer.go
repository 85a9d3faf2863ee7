package solbc

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
)

// AnchorError is a program error reported through an Anchor log line.
type AnchorError struct {
	Code int    `json:"code"`
	Name string `json:"name"`
	Msg  string `json:"msg"`
}

// String renders the error the way it is shown to API callers.
func (a AnchorError) String() string {
	return fmt.Sprintf("%s (%d): %s", a.Name, a.Code, a.Msg)
}

// DescribeTransactionError renders a chain execution error as the JSON the
// node reported, followed by any Anchor program error found in the logs.
func DescribeTransactionError(txErr interface{}, logs []string) []string {
	var reasons []string

	raw, err := json.Marshal(txErr)
	if err != nil {
		reasons = append(reasons, fmt.Sprintf("%v", txErr))
	} else {
		reasons = append(reasons, string(raw))
	}

	if anchorErr, ok := FindAnchorError(logs); ok {
		reasons = append(reasons, "Program error: "+anchorErr.String())
	}
	return reasons
}

// FindAnchorError returns the first Anchor error found in program logs.
func FindAnchorError(logs []string) (AnchorError, bool) {
	for _, line := range logs {
		if strings.Contains(line, "AnchorError") {
			return parseAnchorErrorLog(line), true
		}
	}
	return AnchorError{}, false
}

// DescribeRPCError extracts the useful parts of a failed submission, such as
// a preflight simulation failure and its Anchor error.
func DescribeRPCError(err error) []string {
	if err == nil {
		return nil
	}

	var rpcErr *jsonrpc.RPCError
	if !errors.As(err, &rpcErr) {
		return []string{err.Error()}
	}

	reasons := []string{rpcErr.Message}
	data, ok := rpcErr.Data.(map[string]interface{})
	if !ok {
		return reasons
	}
	if instrErr, ok := data["err"]; ok && instrErr != nil {
		if raw, err := json.Marshal(instrErr); err == nil {
			reasons = append(reasons, string(raw))
		}
	}
	if rawLogs, ok := data["logs"].([]interface{}); ok {
		logs := make([]string, 0, len(rawLogs))
		for _, entry := range rawLogs {
			if s, ok := entry.(string); ok {
				logs = append(logs, s)
			}
		}
		if anchorErr, ok := FindAnchorError(logs); ok {
			reasons = append(reasons, "Program error: "+anchorErr.String())
		}
	}
	return reasons
}

// parseAnchorErrorLog parses a line such as
// "Program log: AnchorError occurred. Error Code: TooMuchSolRequired. Error Number: 6002. Error Message: slippage: Too much SOL required to buy the given amount of tokens."
func parseAnchorErrorLog(line string) AnchorError {
	result := AnchorError{}

	if parts := strings.SplitN(line, "Error Number:", 2); len(parts) == 2 {
		numParts := strings.SplitN(parts[1], ".", 2)
		fmt.Sscanf(strings.TrimSpace(numParts[0]), "%d", &result.Code)
	}
	if parts := strings.SplitN(line, "Error Code:", 2); len(parts) == 2 {
		result.Name = strings.TrimSpace(strings.SplitN(parts[1], ".", 2)[0])
	}
	if parts := strings.SplitN(line, "Error Message:", 2); len(parts) == 2 {
		result.Msg = strings.TrimSuffix(strings.TrimSpace(parts[1]), ".")
	}
	return result
}
