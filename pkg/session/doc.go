/*
Package session runs signals under a stable run key.

A failed run leaves its async results in a ports.ReplayStore; the next Run
with the same key replays them, so completed async work is not repeated.
Runs on the same key are serialized in-process, and across replicas when a
ports.DistributedLocker is configured.
*/
package session
