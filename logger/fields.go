package logger

// Standard field key constants for structured logging.
const (
	FieldComponent = "component"
	FieldTopic     = "topic"
	FieldState     = "state"
	FieldClientID  = "client_id"
	FieldError     = "error"
	FieldURL       = "url"
)

// Fields builds a map[string]interface{} from alternating key-value pairs.
//
//	logger.Info("subscribed", logger.Fields("topic", "posts/*"))
func Fields(kvs ...interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(kvs)/2)
	for i := 0; i < len(kvs)-1; i += 2 {
		if key, ok := kvs[i].(string); ok {
			m[key] = kvs[i+1]
		}
	}
	return m
}
