package chat

import "context"

// Middleware wraps a Client with additional behavior. Middlewares are
// composed with Chain() into a processing pipeline.
type Middleware func(next Client) Client

// clientFunc adapts plain functions to the Client interface.
type clientFunc struct {
	complete  func(context.Context, Request) (Response, error)
	modelName func() string
}

func (f clientFunc) Complete(ctx context.Context, req Request) (Response, error) {
	return f.complete(ctx, req)
}

func (f clientFunc) ModelName() string {
	return f.modelName()
}

// WrapClient creates a Client from the provided function implementations.
// Middleware implementations use this to wrap behavior around a next client.
func WrapClient(
	complete func(context.Context, Request) (Response, error),
	modelName func() string,
) Client {
	return clientFunc{
		complete:  complete,
		modelName: modelName,
	}
}

// Chain composes middlewares around a base Client. Middlewares apply in
// order, earlier ones outermost:
//
//	Chain(client, mw1, mw2) => mw1 -> mw2 -> client
//
// so mw1 sees the request first and the response last.
func Chain(base Client, middlewares ...Middleware) Client {
	client := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		client = middlewares[i](client)
	}
	return client
}
