// Package server provides HTTP routing, middleware and the handlers behind the OAuth callback and
// the local study dashboard.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support. Middleware added first is the
// outermost wrapper. [BasicRouter] sits on [http.ServeMux], filters single-method routes and answers
// unknown paths with a JSON 404 that lists what is registered.
//
// # OAuth Callback Handler
//
// [OAuthHandler] implements the authorization-code callback: it validates the state parameter,
// exchanges the code for a token and delivers the result on a channel. Only the first callback is
// processed.
//
// # Dashboard
//
// [TimerHandler] exposes the session timer hosted by `studyx serve`:
//
//	GET  /api/timer          current state and progress
//	POST /api/timer/start    start or resume
//	POST /api/timer/pause    pause
//	POST /api/timer/reset    back to a full focus countdown
//	POST /api/timer/adjust   ?minutes=N while idle
//	GET  /api/stats          ?days=N daily totals
//
// # Handler Interface
//
// Custom handlers implement [Handler], which adds Routes to [http.Handler] so a handler can register
// several paths at once.
package server
