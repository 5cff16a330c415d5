// YiYi is a chat gateway that relays WebSocket conversations to LLM
// providers, falling back through an ordered list of models.
//
// Usage:
//
//	# Start the gateway with ~/.yiyi/config.yaml
//	yiyi gateway
//
//	# Listen on all interfaces, port 8080
//	yiyi gateway -H 0.0.0.0 -p 8080
//
//	# Talk to a running gateway
//	yiyi chat --url ws://localhost:3000/ws
//
//	# Check a configuration file
//	yiyi config validate -c ./config.yaml
package main

func main() {
	Execute()
}
