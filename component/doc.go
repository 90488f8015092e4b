// Package component gives long-lived resources, such as one client per
// upstream service, a common lifecycle.
//
//	reg := component.NewRegistry()
//	_ = reg.Register(httpclient.NewComponent(billingCfg, transport))
//	if err := reg.StartAll(ctx); err != nil { ... }
//	defer reg.StopAll(context.Background())
package component
