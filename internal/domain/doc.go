// Package domain contains the model types and collaborator interfaces shared
// across the bot. It has no dependencies on concrete storage or platform
// clients; adapters implement the interfaces defined here.
package domain
