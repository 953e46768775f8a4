// Package protocol correlates JSON-RPC traffic with a codex app-server.
//
// A Controller sits on top of a line Transport. It performs the
// initialize/initialized handshake, assigns monotonic integer ids to
// outbound requests, matches replies to callers and fans notifications and
// server-initiated requests out to listeners, each on its own goroutine.
//
// Example usage:
//
//	transport := subprocess.NewAppServerTransport(settings)
//
//	controller, err := protocol.NewController(transport, protocol.Options{
//	    Logger:           log,
//	    InitializeParams: appserver.InitializeParams{ClientInfo: appserver.DefaultClientInfo},
//	})
//	if err != nil {
//	    return err
//	}
//	defer controller.Close()
//
//	var resp appserver.ModelListResponse
//	err = controller.Request(ctx, "model/list", appserver.ListParams{}, &resp)
//
// A listener may call Close. Close does not wait for listener callbacks,
// only for the read loop.
package protocol
