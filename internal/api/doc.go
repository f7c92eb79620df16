// Package api serves the local diagnostics surface: a health check that
// pings the database and reports dispatcher backlog, and the Prometheus
// metrics endpoint. It carries no coursework operations; those go through
// the task dispatcher and the service layer.
package api
