// Package domain models location analysis against map layer symbology.
//
// # Pipeline
//
// An analysis is a chain of pure stages:
//
//	parse -> classify layers -> inspect -> aggregate -> style-join
//
// [ParseLocations] turns uploaded rows into requests, [NewAnalysisLayer]
// classifies each layer's renderer, [InterpretFeature] reads the first
// feature found at a location, [Aggregate] buckets the results per layer and
// [BuildChartDefinitions] joins the buckets with [DeriveStyles]. Querying
// feature sources and geocoding are left to adapters behind [FeatureSource]
// and [Geocoder].
//
// # Renderer categories
//
//	simple                   every feature drawn alike; reports Inside/Outside boundary
//	unique-values            category by exact field value(s) or expression result
//	class-breaks-classified  numeric ranges with labels
//	class-breaks-unclassed   raw magnitude, optionally normalized by a field
//	pie-chart                several fields shown as proportions of their sum
//	unknown                  anything else; interpreted as an empty result
//
// A class-breaks renderer counts as classified when its first break has a
// label. Later labels are not consulted.
//
// # Sentinels
//
// A location with no feature in a simple layer is "Outside boundary"; in any
// other layer it is "No data". A feature outside every legend class is
// "Other". Every chart carries a "No data" element, always first.
//
// # Histograms
//
// Unclassed layers are charted as histograms. The bin count follows Scott's
// normal reference rule and bin edges are rounded to 1, 2 or 5 times a power
// of ten, so repeated runs over the same values give the same bins.
package domain
