// Package session issues stateless session cookies for authenticated users.
//
// A session is an HS256-signed JWT stored in an HttpOnly cookie. The token
// subject is the user id; nothing else is persisted server-side, so logging
// out is done by clearing the cookie.
//
// # Usage
//
//	mgr, err := session.New(session.Config{Secret: secret})
//	if err != nil {
//	    return err
//	}
//
//	h, _ := mgr.Headers(user.ID) // Set-Cookie for a response
//	id, err := mgr.UserID(r)     // verify an incoming request
//
// Middleware stores the verified user id in the request context, readable with
// UserIDFromContext.
package session
