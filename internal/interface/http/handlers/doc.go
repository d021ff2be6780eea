// Package handlers contains reusable HTTP building blocks: bearer-token
// authentication, health checks and generic middleware.
//
// # Authentication
//
// Every learner-scoped endpoint sits behind JWTAuth. The token is HS256
// signed and its `sub` claim is the learner ID:
//
//	auth := handlers.NewJWTAuth(secret, "lingo-progress")
//	router.Use(auth.Middleware)
//
//	learnerID, ok := handlers.LearnerIDFromContext(r.Context())
//
// # Health Checks
//
//	checker := handlers.NewCompositeHealthChecker("v1.0.0")
//	checker.AddCheck("database", handlers.NewPingCheck(conn))
//	checker.AddCheck("cache", handlers.NewPingCheck(cache))
package handlers
