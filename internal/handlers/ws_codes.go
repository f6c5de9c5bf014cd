// internal/handlers/ws_codes.go
package handlers

// Custom WebSocket close codes used within the game handlers. These provide
// more specific reasons for closure than standard codes.
const (
	BadSubprotocolError   = 3000 // Client connected with an unsupported subprotocol.
	InvalidAuthTokenError = 3001 // Provided session token was invalid or expired.
	InvalidGameIDError    = 3002 // Target game ID in the WS URL does not exist or is invalid.
)
