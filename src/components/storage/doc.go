// Package storage is the component that persists deploys.
//
// Other components reach it through request events carrying an
// effect.Responder. Disk access is offloaded to the reactor's worker pool and
// its outcome comes back as a completion event. An I/O failure is fatal: the
// component raises it through effect.Builder.Fatal and the reactor stops.
package storage
