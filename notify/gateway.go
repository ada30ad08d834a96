// Package notify decides when task notifications go out and delivers them
// through a push provider.
package notify

import (
	"context"
	"fmt"
	"strconv"

	"github.com/bytedance/sonic"
)

// DefaultTopic is the broadcast topic every client subscribes to.
const DefaultTopic = "all_users"

// Message is a push notification addressed to a topic.
type Message struct {
	Title    string
	Body     string
	Data     map[string]string
	ImageURL string
}

// Gateway hands messages to a push delivery provider. Implementations do not
// retry; a returned error means the message was not accepted.
type Gateway interface {
	SendToTopic(ctx context.Context, topic string, msg Message) error
}

// StringifyData converts arbitrary payload values to the string map push
// providers require. Scalars are formatted, everything else is JSON encoded.
func StringifyData(data map[string]any) map[string]string {
	out := make(map[string]string, len(data))
	for k, v := range data {
		switch val := v.(type) {
		case nil:
			out[k] = ""
		case string:
			out[k] = val
		case bool:
			out[k] = strconv.FormatBool(val)
		case int:
			out[k] = strconv.Itoa(val)
		case int64:
			out[k] = strconv.FormatInt(val, 10)
		case float64:
			out[k] = strconv.FormatFloat(val, 'f', -1, 64)
		case fmt.Stringer:
			out[k] = val.String()
		default:
			b, err := sonic.Marshal(val)
			if err != nil {
				out[k] = fmt.Sprint(val)
				continue
			}
			out[k] = string(b)
		}
	}
	return out
}
