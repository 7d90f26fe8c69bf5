// Package toolserver runs a local tool server subprocess and exposes its
// list/call operations over stdio JSON-RPC.
//
// Invariants:
// - One subprocess per client; Start is idempotent and Close is final.
// - Responses are correlated to requests by id; unmatched lines are ignored.
// - Calls time out rather than blocking forever on a dead server.
//
// Usage:
//
//	client, _ := toolserver.NewForScript("weather.py", logger)
//	_ = client.Start(ctx)
//	defer client.Close()
//	tools, _ := client.ListTools(ctx)
//	_ = tools
package toolserver
