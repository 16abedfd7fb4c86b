// Copyright (C) 2025 Lakestack Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See <https://www.gnu.org/licenses/agpl-3.0.html> for the full license text.

package scaffold

import (
	"fmt"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"
	"k8s.io/utils/ptr"
	"sigs.k8s.io/yaml"
)

// Manifests are built as typed k8s.io/api objects and serialized through
// sigs.k8s.io/yaml, so field names and quoting are always canonical.

// baseNodeEnvironment names the Trino node environment baked into the
// shared base ConfigMap; overlays share it since node.environment only
// namespaces JMX/metrics.
const baseNodeEnvironment = "lakehouse"

const partOfLabel = "lakestack"

func labelsFor(service string) map[string]string {
	return map[string]string{
		"app.kubernetes.io/name":    service,
		"app.kubernetes.io/part-of": partOfLabel,
	}
}

func selectorFor(service string) *metav1.LabelSelector {
	return &metav1.LabelSelector{
		MatchLabels: map[string]string{"app.kubernetes.io/name": service},
	}
}

func marshalManifest(obj any) ([]byte, error) {
	out, err := yaml.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}
	return out, nil
}

// =============================================================================
// Object store (MinIO)
// =============================================================================

func minioDeployment(cfg *StackConfig) *appsv1.Deployment {
	return &appsv1.Deployment{
		TypeMeta: metav1.TypeMeta{APIVersion: "apps/v1", Kind: "Deployment"},
		ObjectMeta: metav1.ObjectMeta{
			Name:   ServiceMinIO,
			Labels: labelsFor(ServiceMinIO),
		},
		Spec: appsv1.DeploymentSpec{
			Replicas: ptr.To(int32(1)),
			Selector: selectorFor(ServiceMinIO),
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Labels: labelsFor(ServiceMinIO)},
				Spec: corev1.PodSpec{
					Containers: []corev1.Container{{
						Name:  ServiceMinIO,
						Image: cfg.Images.MinIO,
						Args:  []string{"server", "/data", "--console-address", fmt.Sprintf(":%d", MinIOConsolePort)},
						Env: []corev1.EnvVar{
							{Name: "MINIO_ROOT_USER", Value: cfg.Credentials.AccessKey},
							{Name: "MINIO_ROOT_PASSWORD", Value: cfg.Credentials.SecretKey},
						},
						Ports: []corev1.ContainerPort{
							{Name: "api", ContainerPort: MinIOPort},
							{Name: "console", ContainerPort: MinIOConsolePort},
						},
						VolumeMounts: []corev1.VolumeMount{
							{Name: "data", MountPath: "/data"},
						},
						ReadinessProbe: &corev1.Probe{
							ProbeHandler: corev1.ProbeHandler{
								HTTPGet: &corev1.HTTPGetAction{
									Path: "/minio/health/ready",
									Port: intstr.FromInt32(MinIOPort),
								},
							},
							InitialDelaySeconds: 5,
							PeriodSeconds:       10,
						},
						LivenessProbe: &corev1.Probe{
							ProbeHandler: corev1.ProbeHandler{
								HTTPGet: &corev1.HTTPGetAction{
									Path: "/minio/health/live",
									Port: intstr.FromInt32(MinIOPort),
								},
							},
							InitialDelaySeconds: 10,
							PeriodSeconds:       20,
						},
					}},
					Volumes: []corev1.Volume{{
						Name: "data",
						VolumeSource: corev1.VolumeSource{
							PersistentVolumeClaim: &corev1.PersistentVolumeClaimVolumeSource{
								ClaimName: "minio-data",
							},
						},
					}},
				},
			},
		},
	}
}

func minioService() *corev1.Service {
	return &corev1.Service{
		TypeMeta: metav1.TypeMeta{APIVersion: "v1", Kind: "Service"},
		ObjectMeta: metav1.ObjectMeta{
			Name:   ServiceMinIO,
			Labels: labelsFor(ServiceMinIO),
		},
		Spec: corev1.ServiceSpec{
			Selector: map[string]string{"app.kubernetes.io/name": ServiceMinIO},
			Ports: []corev1.ServicePort{
				{Name: "api", Port: MinIOPort, TargetPort: intstr.FromInt32(MinIOPort)},
				{Name: "console", Port: MinIOConsolePort, TargetPort: intstr.FromInt32(MinIOConsolePort)},
			},
		},
	}
}

func minioPVC() *corev1.PersistentVolumeClaim {
	return &corev1.PersistentVolumeClaim{
		TypeMeta: metav1.TypeMeta{APIVersion: "v1", Kind: "PersistentVolumeClaim"},
		ObjectMeta: metav1.ObjectMeta{
			Name:   "minio-data",
			Labels: labelsFor(ServiceMinIO),
		},
		Spec: corev1.PersistentVolumeClaimSpec{
			AccessModes: []corev1.PersistentVolumeAccessMode{corev1.ReadWriteOnce},
			Resources: corev1.VolumeResourceRequirements{
				Requests: corev1.ResourceList{
					corev1.ResourceStorage: resource.MustParse("10Gi"),
				},
			},
		},
	}
}

// =============================================================================
// Catalog service (Nessie)
// =============================================================================

func nessieDeployment(cfg *StackConfig) *appsv1.Deployment {
	return &appsv1.Deployment{
		TypeMeta: metav1.TypeMeta{APIVersion: "apps/v1", Kind: "Deployment"},
		ObjectMeta: metav1.ObjectMeta{
			Name:   ServiceNessie,
			Labels: labelsFor(ServiceNessie),
		},
		Spec: appsv1.DeploymentSpec{
			Replicas: ptr.To(int32(1)),
			Selector: selectorFor(ServiceNessie),
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Labels: labelsFor(ServiceNessie)},
				Spec: corev1.PodSpec{
					Containers: []corev1.Container{{
						Name:  ServiceNessie,
						Image: cfg.Images.Nessie,
						Env: []corev1.EnvVar{
							{Name: "nessie.version.store.type", Value: "IN_MEMORY"},
						},
						Ports: []corev1.ContainerPort{
							{Name: "http", ContainerPort: NessiePort},
						},
						ReadinessProbe: &corev1.Probe{
							ProbeHandler: corev1.ProbeHandler{
								HTTPGet: &corev1.HTTPGetAction{
									Path: "/q/health/ready",
									Port: intstr.FromInt32(NessiePort),
								},
							},
							InitialDelaySeconds: 10,
							PeriodSeconds:       10,
						},
						LivenessProbe: &corev1.Probe{
							ProbeHandler: corev1.ProbeHandler{
								HTTPGet: &corev1.HTTPGetAction{
									Path: "/q/health/live",
									Port: intstr.FromInt32(NessiePort),
								},
							},
							InitialDelaySeconds: 20,
							PeriodSeconds:       20,
						},
					}},
				},
			},
		},
	}
}

func nessieService() *corev1.Service {
	return &corev1.Service{
		TypeMeta: metav1.TypeMeta{APIVersion: "v1", Kind: "Service"},
		ObjectMeta: metav1.ObjectMeta{
			Name:   ServiceNessie,
			Labels: labelsFor(ServiceNessie),
		},
		Spec: corev1.ServiceSpec{
			Selector: map[string]string{"app.kubernetes.io/name": ServiceNessie},
			Ports: []corev1.ServicePort{
				{Name: "http", Port: NessiePort, TargetPort: intstr.FromInt32(NessiePort)},
			},
		},
	}
}

// =============================================================================
// Query engine (Trino)
// =============================================================================

func trinoDeployment(cfg *StackConfig) *appsv1.Deployment {
	return &appsv1.Deployment{
		TypeMeta: metav1.TypeMeta{APIVersion: "apps/v1", Kind: "Deployment"},
		ObjectMeta: metav1.ObjectMeta{
			Name:   ServiceTrino,
			Labels: labelsFor(ServiceTrino),
		},
		Spec: appsv1.DeploymentSpec{
			Replicas: ptr.To(int32(1)),
			Selector: selectorFor(ServiceTrino),
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Labels: labelsFor(ServiceTrino)},
				Spec: corev1.PodSpec{
					Containers: []corev1.Container{{
						Name:  ServiceTrino,
						Image: cfg.Images.Trino,
						Ports: []corev1.ContainerPort{
							{Name: "http", ContainerPort: TrinoPort},
						},
						Resources: corev1.ResourceRequirements{
							Requests: corev1.ResourceList{
								corev1.ResourceMemory: resource.MustParse("2Gi"),
							},
							Limits: corev1.ResourceList{
								corev1.ResourceMemory: resource.MustParse("4Gi"),
							},
						},
						VolumeMounts: []corev1.VolumeMount{
							{Name: "trino-config", MountPath: "/etc/trino"},
							{Name: "trino-catalog", MountPath: "/etc/trino/catalog"},
						},
						ReadinessProbe: &corev1.Probe{
							ProbeHandler: corev1.ProbeHandler{
								HTTPGet: &corev1.HTTPGetAction{
									Path: "/v1/info",
									Port: intstr.FromInt32(TrinoPort),
								},
							},
							InitialDelaySeconds: 30,
							PeriodSeconds:       10,
						},
					}},
					Volumes: []corev1.Volume{
						{
							Name: "trino-config",
							VolumeSource: corev1.VolumeSource{
								ConfigMap: &corev1.ConfigMapVolumeSource{
									LocalObjectReference: corev1.LocalObjectReference{Name: "trino-config"},
								},
							},
						},
						{
							Name: "trino-catalog",
							VolumeSource: corev1.VolumeSource{
								ConfigMap: &corev1.ConfigMapVolumeSource{
									LocalObjectReference: corev1.LocalObjectReference{Name: "trino-catalog"},
								},
							},
						},
					},
				},
			},
		},
	}
}

func trinoService() *corev1.Service {
	return &corev1.Service{
		TypeMeta: metav1.TypeMeta{APIVersion: "v1", Kind: "Service"},
		ObjectMeta: metav1.ObjectMeta{
			Name:   ServiceTrino,
			Labels: labelsFor(ServiceTrino),
		},
		Spec: corev1.ServiceSpec{
			Selector: map[string]string{"app.kubernetes.io/name": ServiceTrino},
			Ports: []corev1.ServicePort{
				{Name: "http", Port: TrinoPort, TargetPort: intstr.FromInt32(TrinoPort)},
			},
		},
	}
}

// trinoConfigMap carries the mode-independent Trino configuration files.
// The catalog properties live in a separate per-overlay ConfigMap because
// their endpoints embed the overlay namespace.
func trinoConfigMap(cfg *StackConfig) *corev1.ConfigMap {
	return &corev1.ConfigMap{
		TypeMeta: metav1.TypeMeta{APIVersion: "v1", Kind: "ConfigMap"},
		ObjectMeta: metav1.ObjectMeta{
			Name:   "trino-config",
			Labels: labelsFor(ServiceTrino),
		},
		Data: map[string]string{
			"jvm.config":        string(jvmConfig(cfg)),
			"config.properties": string(serverConfig(cfg)),
			"node.properties":   string(nodeConfig(cfg, baseNodeEnvironment)),
			"log.properties":    string(logConfig()),
		},
	}
}

// trinoCatalogConfigMap binds the query engine to the catalog service and
// object store of one overlay namespace.
func trinoCatalogConfigMap(cfg *StackConfig, env Environment) *corev1.ConfigMap {
	eps := cfg.EndpointsFor(env.Namespace)
	return &corev1.ConfigMap{
		TypeMeta: metav1.TypeMeta{APIVersion: "v1", Kind: "ConfigMap"},
		ObjectMeta: metav1.ObjectMeta{
			Name:   "trino-catalog",
			Labels: labelsFor(ServiceTrino),
		},
		Data: map[string]string{
			"lakehouse.properties": string(catalogProperties(cfg, eps)),
		},
	}
}

// namespaceManifest declares the overlay namespace itself.
func namespaceManifest(env Environment) *corev1.Namespace {
	return &corev1.Namespace{
		TypeMeta: metav1.TypeMeta{APIVersion: "v1", Kind: "Namespace"},
		ObjectMeta: metav1.ObjectMeta{
			Name:   env.Namespace,
			Labels: map[string]string{"app.kubernetes.io/part-of": partOfLabel},
		},
	}
}
