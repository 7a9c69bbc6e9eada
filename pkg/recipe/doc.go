// Package recipe defines the version and requirement model of the engine:
// recipe references, settings, option domains, package metadata, and the
// lifecycle capabilities a recipe may implement.
//
// # Recipes
//
// A recipe is identified by its Reference ("name/version"). Versions are
// opaque strings compared for exact equality only. Every recipe exposes
// immutable Metadata; lifecycle behaviour is opt-in through capability
// interfaces, invoked by the engine in this order:
//
//	configure -> requirements -> generate -> build -> package -> package_info
//
// Each callback receives an explicit context object (ConfigureContext,
// EvalContext, GenerateContext, BuildContext, PackageContext). There is no
// shared mutable state between nodes.
//
// # Settings
//
// Settings are an ordered mapping over the root axes os, arch, compiler and
// build_type, with dotted sub-settings such as compiler.cppstd. Each graph
// node receives a copy narrowed to the axes its recipe declares; Remove drops
// an axis together with its sub-settings. Settings are frozen after configure
// and panic on mutation afterwards.
//
// # Go recipes
//
// Definition implements every capability with overridable function fields:
//
//	catalog := recipe.NewCatalog()
//	catalog.MustRegister(&recipe.Definition{
//	    Meta: recipe.Metadata{
//	        Name:        "pocketsphinx",
//	        Version:     "5.0.1",
//	        PackageType: recipe.PackageTypeLibrary,
//	        Settings:    []string{"os", "arch", "compiler", "build_type"},
//	        Options:     map[string][]string{"shared": {"True", "False"}, "fPIC": {"True", "False"}},
//	        DefaultOptions: map[string]string{"shared": "False", "fPIC": "True"},
//	    },
//	    ConfigureFunc: func(ctx context.Context, cc *recipe.ConfigureContext) error {
//	        if v, _ := cc.Options.Value("shared"); v == "True" {
//	            cc.Options.Remove("fPIC")
//	        }
//	        cc.Settings.Remove("compiler.libcxx")
//	        cc.Settings.Remove("compiler.cppstd")
//	        return nil
//	    },
//	})
//
// Declarative recipes loaded from YAML or HCL files are provided by
// pkg/recipefile.
package recipe
