// Package model contains the domain types shared by the resolver, its
// collaborators and the adapters.
package model
