/*
Package session keeps dialogue sessions in a StateStore and serializes access to them.

Every host operation follows the same pattern: take the session lock, load the
snapshot, apply one engine call and save the result. Manager provides that
pattern as Update, plus LoadOrStart for creating sessions on first use. Locks
are per session ID, held in process and, when a DistributedLocker is
configured, across replicas as well.
*/
package session
