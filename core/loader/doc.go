// Package loader mounts optional HTTP features on a fiber router.
//
// A feature reports its name and whether its dependencies are available:
//
//	type Feature interface {
//	    Name() string
//	    IsEnabled() bool
//	    Load(app fiber.Router) error
//	}
//
// The Manager keeps features in registration order and rejects duplicate
// names. LoadAll skips disabled features and stops at the first Load error,
// so the service never starts with a partial route table.
//
//	mgr := loader.NewManager(logger)
//	_ = mgr.Register(importer.NewFeature(svc))
//	if err := mgr.LoadAll(app); err != nil {
//	    return err
//	}
package loader
