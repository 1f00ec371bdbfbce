package server

import "context"

type authContextKey struct{}

// Requester identifies the caller of one request. The zero value is an
// anonymous caller, limited to public reads.
type Requester struct {
	UserID        string
	Name          string
	Privileged    bool
	Authenticated bool
}

// CanView applies the access gate: public files are open, private files
// are visible only to their owner or a privileged caller.
func (r Requester) CanView(public bool, ownerID string) bool {
	if public || r.Privileged {
		return true
	}
	return r.Authenticated && r.UserID != "" && r.UserID == ownerID
}

// CanManage reports whether the caller may mutate or delete a file.
func (r Requester) CanManage(ownerID string) bool {
	if r.Privileged {
		return true
	}
	return r.Authenticated && r.UserID != "" && r.UserID == ownerID
}

func contextWithRequester(ctx context.Context, requester Requester) context.Context {
	return context.WithValue(ctx, authContextKey{}, requester)
}

func requesterFromContext(ctx context.Context) Requester {
	if ctx == nil {
		return Requester{}
	}
	requester, _ := ctx.Value(authContextKey{}).(Requester)
	return requester
}
