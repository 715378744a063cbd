// Package metrics holds every prometheus collector the auth service exports.
// All names live under the mediarequest namespace.
package metrics

const namespace = "mediarequest"
