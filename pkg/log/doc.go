/*
Package log provides structured logging for the store platform using zerolog.

A single root logger is configured once from the CLI flags:

	log.Init("info", true)

Components derive scoped child loggers at construction:

	provLog := log.WithComponent("provisioner")
	provLog.Info().Msg("Provisioner started")

and lifecycle workflows derive per-store loggers so every line they emit is
attributable to one store:

	storeLog := log.WithStoreID("store-1a2b3c4d")
	storeLog.Error().Err(err).Msg("Helm install failed")

Use info level in production; debug is verbose and intended for development.
Never log generated credentials or chart values containing passwords.
*/
package log
