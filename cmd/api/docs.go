//go:generate swag init -g docs.go -o ../../docs --parseDependency --parseInternal --dir .,../../internal/httpapi

package main

// @title SwiftSnip API
// @version 1.0
// @description Code snippet library: search, tagging, favorites, markdown preview and sandboxed JavaScript runs.
// @BasePath /v1
// @securityDefinitions.apikey SessionAuth
// @in cookie
// @name swiftsnip_session
// @description HttpOnly session cookie; unsafe methods also need X-CSRF-Token
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description "Bearer " followed by the access token returned at login
